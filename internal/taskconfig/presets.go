package taskconfig

import (
	"net/url"
	"strings"
)

const (
	RegistrarTaskName = "register-death"
	FuneralTaskName   = "find-funeral"
	NotifyTaskName    = "notify-organisations"
)

// cityOfLondonPostcodes are the districts the City of London registrar serves.
var cityOfLondonPostcodes = []string{"EC1", "EC2", "EC3", "EC4"}

type RegistrarInputs struct {
	DeathLocation    string `json:"death_location" yaml:"death_location"`
	Postcode         string `json:"postcode" yaml:"postcode"`
	PreferredBorough string `json:"preferred_borough,omitempty" yaml:"preferred_borough,omitempty"`
}

// RegisterDeathTask navigates from a search engine to the booking form of the
// register office responsible for the place of death.
func RegisterDeathTask(in RegistrarInputs) *TaskConfiguration {
	query := "site:gov.uk local registrar office " + strings.TrimSpace(in.DeathLocation) + " site:.gov.uk"

	var block []string
	if !servedByCityOfLondon(in.Postcode) {
		block = []string{"cityoflondon.gov.uk"}
	}

	inputs := map[string]string{
		"death_location": in.DeathLocation,
		"postcode":       in.Postcode,
	}
	if in.PreferredBorough != "" {
		inputs["preferred_borough"] = in.PreferredBorough
	}

	return &TaskConfiguration{
		Name:    RegistrarTaskName,
		SeedURL: "https://duckduckgo.com/?q=" + url.QueryEscape(query),
		GoalKeywords: []string{
			"register a death",
			"book an appointment",
			"registering a death",
		},
		GoalSelectors: []string{
			"a[href*='register']",
			"a[href*='death']",
			"a[href*='book']",
		},
		AllowDomains: []string{".gov.uk"},
		BlockDomains: block,
		PreferKeywords: []string{
			"register a death",
			"book an appointment",
			"births, deaths and marriages",
			"register office",
			"registering a death",
		},
		StopURLPatterns: []string{
			`/register(-|%20)?death`,
			`/births(-|%20)?deaths(-|%20)?marriages`,
			`/book.*appointment`,
		},
		StopPhrases: []string{
			"book an appointment to register a death",
			"certificate for burial or cremation",
		},
		StopOnForm: true,
		Instructions: []string{
			"Open the seed URL and pick a council (borough) result on a .gov.uk host other than www.gov.uk, using enumerate_links with domain_filter gov.uk.",
			"If the search results are unhelpful, open https://www.gov.uk/register-offices, fill the postcode and submit with click_first_of, starting with the role candidate find.*register office.",
			"On the council site look for a booking link first (click_role link book.*(appointment|online).*death), then the register a death page.",
			"Move through start or continue pages with click_first_of texts Start|Continue|Next|Proceed|I agree|Accept and continue|Book now|Begin.",
			"Call detect_form after each click; a visible form means the booking form has been reached.",
			"Take a screenshot named page.png before finishing.",
		},
		Inputs:       inputs,
		ResultSchema: SchemaRegistrar,
	}
}

func servedByCityOfLondon(postcode string) bool {
	postcode = strings.ToUpper(strings.TrimSpace(postcode))

	for _, prefix := range cityOfLondonPostcodes {
		if strings.HasPrefix(postcode, prefix) {
			return true
		}
	}

	return false
}

// FuneralCatalogueTask collects funeral providers near location grouped by
// cremation, burial and woodland burial.
func FuneralCatalogueTask(location string) *TaskConfiguration {
	location = strings.TrimSpace(location)

	return &TaskConfiguration{
		Name:    FuneralTaskName,
		SeedURL: "https://duckduckgo.com/?q=" + url.QueryEscape("funeral directors "+location+" prices"),
		GoalKeywords: []string{
			"funeral director",
			"direct cremation",
			"burial",
			"woodland burial",
		},
		BlockDomains: []string{
			"facebook.com",
			"instagram.com",
			"x.com",
			"twitter.com",
			"tiktok.com",
		},
		PreferKeywords: []string{
			"price",
			"cremation",
			"burial",
			"woodland",
			"natural burial",
		},
		AllowFinish: true,
		Instructions: []string{
			"Find three funeral providers for each of cremation, burial and woodland (natural) burial near the given location.",
			"Prefer official provider sites and published price lists; prices include the currency symbol.",
			"Ratings are numbers such as 4.8; anything unavailable is null.",
			"Call finish once every category has up to three verified entries.",
		},
		Inputs:       map[string]string{"location": location},
		ResultSchema: SchemaCatalogue,
	}
}

// NotifyDirectoryTask compiles UK organisations to notify after a death.
func NotifyDirectoryTask() *TaskConfiguration {
	return &TaskConfiguration{
		Name:    NotifyTaskName,
		SeedURL: "https://www.gov.uk/after-a-death/organisations-you-need-to-contact-and-tell-us-once",
		GoalKeywords: []string{
			"bereavement",
			"tell us once",
			"notify",
		},
		BlockDomains: []string{
			"facebook.com",
			"instagram.com",
			"x.com",
			"twitter.com",
			"linkedin.com",
			"youtube.com",
		},
		PreferKeywords: []string{
			"bereavement",
			"death",
			"contact",
			"notify",
		},
		AllowFinish: true,
		Instructions: []string{
			"Visit trusted sources such as www.gov.uk, www.moneyhelper.org.uk and www.deathnotificationservice.co.uk.",
			"Group organisations into banks, insurers, utilities, telecom, government and others.",
			"For each organisation record the official bereavement or contact page, the phone number and an email address when one is published; otherwise null.",
			"Skip blogs, aggregators and social media. Call finish once each group is populated.",
		},
		ResultSchema: SchemaDirectory,
	}
}
