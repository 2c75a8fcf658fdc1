package taskconfig

import (
	"testing"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrarEvaluator(t *testing.T) *StopEvaluator {
	t.Helper()

	e, err := NewStopEvaluator(RegisterDeathTask(RegistrarInputs{DeathLocation: "Camden", Postcode: "NW1 2RU"}))
	require.NoError(t, err)

	return e
}

func TestFormDetectionWinsRegardlessOfPage(t *testing.T) {
	e := registrarEvaluator(t)

	reason := e.Evaluate(StopInput{
		Step: entity.PlanStep{
			Action: entity.ActionDetectForm,
			Result: entity.Succeeded(map[string]any{"has_fields": true}),
		},
		Location: entity.Location{URL: "https://duckduckgo.com/?q=anything"},
	})

	assert.Equal(t, StopFormDetected, reason)
}

func TestFormDetectionNeedsStopOnForm(t *testing.T) {
	e, err := NewStopEvaluator(&TaskConfiguration{Name: "x"})
	require.NoError(t, err)

	reason := e.Evaluate(StopInput{
		Step: entity.PlanStep{
			Action: entity.ActionDetectForm,
			Result: entity.Succeeded(map[string]any{"has_fields": true}),
		},
	})

	assert.Empty(t, reason)
}

func TestStopEvaluate(t *testing.T) {
	e := registrarEvaluator(t)
	click := entity.PlanStep{Action: entity.ActionClickText, Result: entity.Succeeded(nil)}

	tests := []struct {
		name string
		in   StopInput
		want string
	}{
		{
			name: "form absent",
			in: StopInput{
				Step:     entity.PlanStep{Action: entity.ActionDetectForm, Result: entity.Succeeded(map[string]any{"has_fields": false})},
				Location: entity.Location{URL: "https://www.camden.gov.uk/"},
			},
			want: "",
		},
		{
			name: "register-a-death is not a stop url",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://www.camden.gov.uk/register-a-death"},
			},
			want: "",
		},
		{
			name: "url pattern matches booking path",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://www.camden.gov.uk/book-an-appointment"},
			},
			want: StopURLPattern + ":/book.*appointment",
		},
		{
			name: "encoded register death",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://www.islington.gov.uk/register%20death"},
			},
			want: StopURLPattern + ":/register(-|%20)?death",
		},
		{
			name: "phrase case insensitive",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://www.camden.gov.uk/registrars"},
				Text:     "You need to BOOK AN APPOINTMENT TO REGISTER A DEATH within 5 days.",
			},
			want: StopPhrase + ":book an appointment to register a death",
		},
		{
			name: "phrase on search engine ignored",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://duckduckgo.com/?q=register"},
				Text:     "Book an appointment to register a death - Camden Council",
			},
			want: "",
		},
		{
			name: "url pattern on third-party booking host",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://camden.bookinglive.com/book-an-appointment"},
			},
			want: StopURLPattern + ":/book.*appointment",
		},
		{
			name: "phrase on host outside allow list ignored",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://camden.bookinglive.com/"},
				Text:     "Book an appointment to register a death",
			},
			want: "",
		},
		{
			name: "blocked host ignored",
			in: StopInput{
				Step:     click,
				Location: entity.Location{URL: "https://www.cityoflondon.gov.uk/book-appointment"},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.in))
		})
	}
}
