package browser

import (
	"encoding/json"
	"strconv"
	"strings"
)

// markAttr tags the element a script resolved so chromedp can act on it
// with a plain CSS selector
const markAttr = "data-filtercheck"

// loadingSelectors are the indicators the table shows while refreshing
var loadingSelectors = []string{".loading", ".spinner", ".mantine-LoadingOverlay-root"}

const helpers = `
const fcVisible = (el) => !!el && el.getClientRects().length > 0 &&
	getComputedStyle(el).visibility !== 'hidden';
const fcText = (el) => ((el && (el.innerText || el.textContent)) || '').trim();
const fcMark = (el, name) => {
	document.querySelectorAll('[` + markAttr + `="' + name + '"]')
		.forEach((e) => e.removeAttribute('` + markAttr + `'));
	if (!el) return false;
	el.setAttribute('` + markAttr + `', name);
	return true;
};
const fcName = (el) => {
	const aria = el.getAttribute('aria-label');
	if (aria) return aria.trim();
	const by = el.getAttribute('aria-labelledby');
	if (by) {
		const text = by.split(/\s+/).map((id) => fcText(document.getElementById(id))).join(' ').trim();
		if (text) return text;
	}
	if (el.id) {
		const label = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
		if (label) return fcText(label);
	}
	const wrapping = el.closest('label');
	if (wrapping) return fcText(wrapping);
	return (el.getAttribute('placeholder') || '').trim();
};
// fcByName matches names case-insensitively by substring, so a required
// field labelled "Email *" still answers to "Email". An exact match wins.
const fcByName = (els, name, nameOf) => {
	const want = name.trim().toLowerCase();
	const named = els.filter(fcVisible).map((el) => [el, nameOf(el).toLowerCase()]);
	const exact = named.find(([, n]) => n === want);
	if (exact) return exact[0];
	const partial = named.find(([, n]) => n.includes(want));
	return partial ? partial[0] : null;
};
const fcTextbox = (name) => fcByName(Array.from(document.querySelectorAll(
	'input:not([type="hidden"]):not([type="checkbox"]):not([type="radio"]), textarea, [role="textbox"], [role="combobox"]')),
	name, fcName);
const fcButtonName = (el) => (el.getAttribute('aria-label') || '').trim() || fcText(el);
const fcButton = (name) => fcByName(Array.from(document.querySelectorAll('button, [role="button"]')),
	name, fcButtonName);
const fcOptions = () => Array.from(document.querySelectorAll('[role="option"]')).filter(fcVisible);
const fcPageButtons = () => Array.from(document.querySelectorAll(
	'button.mantine-Pagination-control, button[role="button"]'))
	.filter((el) => fcVisible(el) && /^\d+$/.test(fcText(el)));
`

func script(body string) string {
	return "(() => {" + helpers + body + "\n})()"
}

// jsString renders s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func markedSelector(name string) string {
	return `[` + markAttr + `="` + name + `"]`
}

func markTextboxJS(name, mark string) string {
	return script(`return fcMark(fcTextbox(` + jsString(name) + `), ` + jsString(mark) + `);`)
}

func markButtonJS(name, mark string) string {
	return script(`return fcMark(fcButton(` + jsString(name) + `), ` + jsString(mark) + `);`)
}

func visibleOptionsJS() string {
	return script(`
	const seen = new Set();
	const out = [];
	for (const el of fcOptions()) {
		const text = fcText(el);
		if (text && !seen.has(text)) {
			seen.add(text);
			out.push(text);
		}
	}
	return out;`)
}

// markOptionJS marks the first visible option whose text contains value or
// is contained by it
func markOptionJS(value, mark string) string {
	return script(`
	const want = ` + jsString(value) + `;
	const match = fcOptions().find((el) => {
		const text = fcText(el);
		return text && (text.includes(want) || want.includes(text));
	});
	return fcMark(match || null, ` + jsString(mark) + `);`)
}

func tableRowsJS() string {
	return script(`
	let rows = Array.from(document.querySelectorAll('tbody tr'));
	if (rows.length === 0) {
		rows = Array.from(document.querySelectorAll('tr')).slice(1);
	}
	return rows.map((row) => Array.from(row.querySelectorAll('td')).map(fcText));`)
}

func loadingVisibleJS() string {
	selectors := make([]string, 0, len(loadingSelectors))
	for _, s := range loadingSelectors {
		selectors = append(selectors, jsString(s))
	}
	return script(`
	const selectors = [` + strings.Join(selectors, ", ") + `];
	return selectors.some((s) => Array.from(document.querySelectorAll(s)).some(fcVisible));`)
}

func hasNextJS() string {
	return script(`
	const next = fcButton('Next');
	return !!next && !next.disabled && next.getAttribute('aria-disabled') !== 'true' &&
		!next.hasAttribute('data-disabled');`)
}

func pageNumbersJS() string {
	return script(`
	const pages = new Set(fcPageButtons().map((el) => parseInt(fcText(el), 10)));
	return Array.from(pages).sort((a, b) => a - b);`)
}

// markPageJS marks the numbered page button and scrolls it into view,
// then back up a little so sticky footers do not cover it
func markPageJS(n int, mark string) string {
	return script(`
	const el = fcPageButtons().find((b) => fcText(b) === ` + jsString(strconv.Itoa(n)) + `) || null;
	if (!fcMark(el, ` + jsString(mark) + `)) return false;
	el.scrollIntoView({block: 'center'});
	window.scrollBy(0, -200);
	return true;`)
}

func jsClickJS(mark string) string {
	return script(`
	const el = document.querySelector('` + markedSelector(mark) + `');
	if (!el) return false;
	el.click();
	return true;`)
}
