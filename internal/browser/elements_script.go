package browser

// linksScript runs against every anchor on the page via Locator.EvaluateAll.
const linksScript = `(anchors) => {
	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);

		return (
			rect.width > 0 &&
			rect.height > 0 &&
			style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			parseFloat(style.opacity) > 0
		);
	};

	return anchors.map((a) => {
		let text = (a.innerText || a.textContent || '').trim();
		if (!text) {
			text = (a.getAttribute('aria-label') || a.getAttribute('title') || '').trim();
		}
		if (text.length > 200) {
			text = text.substring(0, 200);
		}

		return {text: text, href: a.href || '', visible: isVisible(a)};
	});
}`

const scrollScript = `(px) => { window.scrollBy(0, px); return window.scrollY; }`

// formFieldsSelector matches fields a person would fill in; hidden inputs never become visible.
const formFieldsSelector = `input:not([type="hidden"]), select, textarea`
