// internal/browser/cdp/scripts.go
package cdp

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

// refAttr marks the element an action resolved, so the follow-up CDP
// actions can address it with a plain CSS query.
const refAttr = "data-uiverify-ref"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsLocator is the shape of a locator inside injected scripts.
type jsLocator struct {
	Strategy string `json:"strategy"`
	Selector string `json:"selector,omitempty"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text,omitempty"`
	Exact    bool   `json:"exact"`
}

// probeResult is what every resolving script returns.
type probeResult struct {
	Found    bool   `json:"found"`
	Visible  bool   `json:"visible"`
	Editable bool   `json:"editable"`
	Disabled bool   `json:"disabled"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	// Error is set when the locator itself is unusable, e.g. an invalid CSS selector.
	Error string `json:"error,omitempty"`
}

// selectResult is returned by the option selection script.
type selectResult struct {
	probeResult
	IsSelect bool   `json:"isSelect"`
	Option   bool   `json:"option"`
	Selected string `json:"selected"`
}

func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func encodeLocator(l locator.Locator) string {
	return jsonEncode(jsLocator{
		Strategy: string(l.Strategy),
		Selector: l.Selector,
		Role:     l.Role,
		Name:     l.Name,
		Text:     l.Text,
		Exact:    l.Exact,
	})
}

func refSelector(ref string) string {
	return fmt.Sprintf(`[%s=%q]`, refAttr, ref)
}

// resolverLib defines resolve(loc) and describe(el) in the enclosing scope.
// resolve prefers the first visible match and falls back to the first match.
const resolverLib = `
const norm = (s) => String(s == null ? '' : s).replace(/\s+/g, ' ').trim();
const textMatches = (have, want, exact) => exact
  ? norm(have) === want
  : norm(have).toLowerCase().includes(norm(want).toLowerCase());
const isVisible = (el) => {
  if (!el || !el.isConnected) return false;
  const st = window.getComputedStyle(el);
  if (st.display === 'none' || st.visibility === 'hidden' || st.visibility === 'collapse') return false;
  const r = el.getBoundingClientRect();
  return r.width > 0 && r.height > 0;
};
const implicitRole = (el) => {
  const tag = el.tagName.toLowerCase();
  const type = (el.getAttribute('type') || '').toLowerCase();
  switch (tag) {
    case 'a': case 'area': return el.hasAttribute('href') ? 'link' : '';
    case 'button': return 'button';
    case 'textarea': return 'textbox';
    case 'select': return (el.multiple || el.size > 1) ? 'listbox' : 'combobox';
    case 'option': return 'option';
    case 'img': return 'img';
    case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
    case 'nav': return 'navigation';
    case 'main': return 'main';
    case 'header': return 'banner';
    case 'footer': return 'contentinfo';
    case 'form': return 'form';
    case 'ul': case 'ol': return 'list';
    case 'li': return 'listitem';
    case 'table': return 'table';
    case 'dialog': return 'dialog';
    case 'input':
      switch (type) {
        case 'button': case 'submit': case 'reset': case 'image': return 'button';
        case 'checkbox': return 'checkbox';
        case 'radio': return 'radio';
        case 'range': return 'slider';
        case 'number': return 'spinbutton';
        case 'hidden': return '';
        case 'search': return el.hasAttribute('list') ? 'combobox' : 'searchbox';
        default: return el.hasAttribute('list') ? 'combobox' : 'textbox';
      }
  }
  if (el.isContentEditable && el.getAttribute('contenteditable') !== null) return 'textbox';
  return '';
};
const roleOf = (el) => {
  const explicit = norm(el.getAttribute('role')).split(' ')[0];
  return explicit || implicitRole(el);
};
const accessibleName = (el, role) => {
  const ids = norm(el.getAttribute('aria-labelledby'));
  if (ids) {
    const joined = ids.split(' ').map((id) => document.getElementById(id)).filter(Boolean).map((n) => n.textContent).join(' ');
    if (norm(joined)) return norm(joined);
  }
  const aria = norm(el.getAttribute('aria-label'));
  if (aria) return aria;
  if (el.labels && el.labels.length) {
    const fromLabels = norm(Array.from(el.labels).map((l) => l.textContent).join(' '));
    if (fromLabels) return fromLabels;
  }
  const tag = el.tagName.toLowerCase();
  if (tag === 'input' && ['button', 'submit', 'reset'].includes((el.type || '').toLowerCase())) return norm(el.value);
  if (tag === 'img' || tag === 'area') return norm(el.getAttribute('alt'));
  if (['textbox', 'searchbox', 'combobox', 'listbox', 'spinbutton'].includes(role)) {
    return norm(el.getAttribute('title') || el.getAttribute('placeholder'));
  }
  return norm(el.innerText || el.textContent) || norm(el.getAttribute('title'));
};
const pick = (list) => list.find(isVisible) || list[0] || null;
const resolve = (loc) => {
  switch (loc.strategy) {
    case 'css':
      return pick(Array.from(document.querySelectorAll(loc.selector)));
    case 'role':
      return pick(Array.from(document.querySelectorAll('*')).filter((el) => {
        const role = roleOf(el);
        if (role !== loc.role) return false;
        return !loc.name || textMatches(accessibleName(el, role), loc.name, loc.exact);
      }));
    case 'text': {
      const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'TITLE']);
      const hits = Array.from(document.body ? document.body.querySelectorAll('*') : [])
        .filter((el) => !skip.has(el.tagName) && textMatches(el.textContent, loc.text, loc.exact));
      return pick(hits.filter((el) => !hits.some((other) => other !== el && el.contains(other))));
    }
  }
  throw new Error('unknown strategy ' + loc.strategy);
};
const isEditable = (el) => {
  if (el.disabled || el.readOnly) return false;
  const tag = el.tagName.toLowerCase();
  if (tag === 'textarea') return true;
  if (tag === 'input') {
    return !['button', 'submit', 'reset', 'image', 'checkbox', 'radio', 'file', 'hidden', 'range', 'color'].includes((el.type || '').toLowerCase());
  }
  return el.isContentEditable;
};
const describe = (el) => {
  if (!el) return { found: false, visible: false, editable: false, disabled: false, tag: '', value: '' };
  const tag = el.tagName.toLowerCase();
  const disabled = !!el.disabled || el.getAttribute('aria-disabled') === 'true';
  let value = '';
  if ('value' in el && (tag === 'input' || tag === 'textarea' || tag === 'select')) value = String(el.value);
  else if (el.isContentEditable) value = el.innerText;
  else value = el.textContent || '';
  return { found: true, visible: isVisible(el), editable: isEditable(el), disabled: disabled, tag: tag, value: value };
};
`

// probeScript resolves the locator and describes the match. When ref is
// non-empty the match is tagged with it.
func probeScript(l locator.Locator, ref string) string {
	return fmt.Sprintf(`(() => {
%s
try {
  const el = resolve(%s);
  const ref = %s;
  if (el && ref) el.setAttribute(%q, ref);
  return describe(el);
} catch (e) {
  return Object.assign(describe(null), { error: String(e && e.message || e) });
}
})()`, resolverLib, encodeLocator(l), jsonEncode(ref), refAttr)
}

// stateFunction is a page function for chromedp.PollFunction. It returns
// true once the locator satisfies state and false otherwise.
func stateFunction(l locator.Locator, state locator.State) string {
	return fmt.Sprintf(`() => {
%s
let el = null;
try { el = resolve(%s); } catch (e) { return false; }
switch (%s) {
  case 'attached': return !!el;
  case 'hidden': return !el || !isVisible(el);
  default: return !!el && isVisible(el);
}
}`, resolverLib, encodeLocator(l), jsonEncode(string(state)))
}

// clearScript empties the tagged control and focuses it, firing an input
// event so frameworks observe the change.
func clearScript(ref string) string {
	return fmt.Sprintf(`(() => {
const el = document.querySelector(%s);
if (!el) return false;
el.focus();
if ('value' in el) {
  el.value = '';
  if (typeof el.select === 'function') el.select();
} else {
  const range = document.createRange();
  range.selectNodeContents(el);
  const sel = window.getSelection();
  sel.removeAllRanges();
  sel.addRange(range);
  document.execCommand('delete');
}
el.dispatchEvent(new Event('input', { bubbles: true }));
return true;
})()`, jsonEncode(refSelector(ref)))
}

// selectScript chooses the option of a native select whose value or label
// equals value, then fires input and change.
func selectScript(l locator.Locator, value string) string {
	return fmt.Sprintf(`(() => {
%s
let el = null;
try { el = resolve(%s); } catch (e) {
  return Object.assign(describe(null), { error: String(e && e.message || e), isSelect: false, option: false, selected: '' });
}
const want = %s;
const out = Object.assign(describe(el), { isSelect: false, option: false, selected: '' });
if (!el || el.tagName.toLowerCase() !== 'select') return out;
out.isSelect = true;
const opt = Array.from(el.options).find((o) => o.value === want || norm(o.label || o.text) === norm(want));
if (!opt) return out;
el.value = opt.value;
opt.selected = true;
el.dispatchEvent(new Event('input', { bubbles: true }));
el.dispatchEvent(new Event('change', { bubbles: true }));
out.option = true;
out.selected = opt.value;
out.value = el.value;
return out;
})()`, resolverLib, encodeLocator(l), jsonEncode(value))
}
