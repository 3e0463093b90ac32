package browser

// readScript returns the document markup and the numbers needed to estimate
// how far down the page the viewport is.
const readScript = `() => ({
  html: document.documentElement ? document.documentElement.outerHTML : "",
  scrollY: window.scrollY || 0,
  innerHeight: window.innerHeight || 0,
  scrollHeight: document.documentElement ? document.documentElement.scrollHeight : 0
})`

// findElement is shared by click and type. A selector that is not valid CSS
// or matches nothing is retried as visible text of a clickable element.
const findElement = `
  const find = (sel) => {
    let el = null;
    try { el = document.querySelector(sel); } catch (e) {}
    if (el) return el;
    const needle = sel.trim().toLowerCase();
    if (!needle) return null;
    const candidates = document.querySelectorAll('a, button, [role="button"], input[type="submit"], input[type="button"], label, summary');
    for (const c of candidates) {
      const text = (c.innerText || c.value || c.getAttribute('aria-label') || '').trim().toLowerCase();
      if (text && text === needle) return c;
    }
    for (const c of candidates) {
      const text = (c.innerText || c.value || c.getAttribute('aria-label') || '').trim().toLowerCase();
      if (text && text.includes(needle)) return c;
    }
    return null;
  };`

const clickScript = `(sel) => {` + findElement + `
  const el = find(sel);
  if (!el) return "not_found";
  el.scrollIntoView({block: "center"});
  el.click();
  return "ok";
}`

// typeScript sets the value through the native setter so frameworks that
// track input state see the change. A trailing newline submits the form.
const typeScript = `({sel, text}) => {` + findElement + `
  const el = find(sel);
  if (!el) return "not_found";
  const submit = text.endsWith("\n");
  const value = submit ? text.slice(0, -1) : text;
  el.scrollIntoView({block: "center"});
  el.focus();
  if (el.isContentEditable) {
    el.textContent = value;
  } else {
    const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    const setter = Object.getOwnPropertyDescriptor(proto, "value");
    if (setter && setter.set) { setter.set.call(el, value); } else { el.value = value; }
  }
  el.dispatchEvent(new Event("input", {bubbles: true}));
  el.dispatchEvent(new Event("change", {bubbles: true}));
  if (submit) {
    const form = el.form || el.closest("form");
    if (form) {
      if (form.requestSubmit) { form.requestSubmit(); } else { form.submit(); }
    } else {
      el.dispatchEvent(new KeyboardEvent("keydown", {key: "Enter", code: "Enter", keyCode: 13, bubbles: true}));
    }
  }
  return "ok";
}`

// scrollScript moves by amount pixels, or most of a screen when amount is 0.
const scrollScript = `({direction, amount}) => {
  const step = amount > 0 ? amount : Math.round(window.innerHeight * 0.8);
  window.scrollBy(0, direction === "up" ? -step : step);
  return window.scrollY;
}`

const historyLengthScript = `() => window.history.length`
