package page

import (
	"encoding/json"
	"fmt"
)

// bindingName is the page-side function scripts call to hand events to the agent.
const bindingName = "gallerySyncEvent"

// changeObserverScript runs in every new document and reports layout changes of
// the body as zero-payload change events.
var changeObserverScript = fmt.Sprintf(`(() => {
  const notify = () => {
    if (typeof window.%[1]s === "function") {
      window.%[1]s(JSON.stringify({ kind: "change" }));
    }
  };
  const start = () => new ResizeObserver(notify).observe(document.body);
  if (document.body) {
    start();
  } else {
    window.addEventListener("DOMContentLoaded", start);
  }
})();`, bindingName)

// listingFinder declares findListing(sel, id), which returns the item of the
// latest gallery section whose identity anchor carries id.
const listingFinder = `
const findListing = (sel, id) => {
  const sections = document.querySelectorAll(sel.section);
  if (sections.length === 0) return null;
  for (const item of sections[sections.length - 1].querySelectorAll(sel.item)) {
    const anchor = item.querySelector(sel.identity);
    if (anchor && anchor.id === id) return item;
  }
  return null;
};
`

type scriptSelectors struct {
	Section  string `json:"section"`
	Item     string `json:"item"`
	Identity string `json:"identity"`
	Price    string `json:"price"`
}

// script wraps body in an IIFE that has sel, args and findListing in scope.
func script(sel scriptSelectors, args any, body string) (string, error) {
	selJSON, err := json.Marshal(sel)
	if err != nil {
		return "", err
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(() => {\nconst sel = %s;\nconst args = %s;\n%s\n%s\n})()", selJSON, argsJSON, listingFinder, body), nil
}

const priceFragmentsBody = `
const item = findListing(sel, args.id);
const price = item && item.querySelector(sel.price);
if (!price) return { found: false };
return {
  found: true,
  fragments: Array.from(price.childNodes)
    .filter((n) => n.nodeType === Node.TEXT_NODE || n.nodeType === Node.ELEMENT_NODE)
    .map((n) => n.textContent),
};`

const setPriceColorBody = `
const item = findListing(sel, args.id);
const price = item && item.querySelector(sel.price);
if (!price) return false;
price.style.color = args.color;
return true;`

const hasContainerBody = `
const item = findListing(sel, args.id);
if (!item) return { found: false };
return { found: true, exists: item.querySelector("[id='" + CSS.escape(args.container) + "']") !== null };`

var renderContainerBody = fmt.Sprintf(`
const item = findListing(sel, args.id);
if (!item) return false;
const div = document.createElement("div");
div.id = args.container;
div.className = %[1]q;
for (const control of args.controls) {
  const button = document.createElement("button");
  button.type = "button";
  button.style.backgroundColor = control.style;
  button.dataset.style = control.style;
  if (control.link) {
    button.dataset.link = control.link;
    button.addEventListener("click", () => window.open(control.link, "_blank"));
  }
  if (control.action) {
    button.dataset.action = control.action;
    button.addEventListener("click", () =>
      window.%[2]s(JSON.stringify({ kind: "action", id: args.id, action: control.action })));
  }
  div.appendChild(button);
}
const existing = item.querySelector("[id='" + CSS.escape(args.container) + "']");
if (existing) {
  existing.replaceWith(div);
} else {
  item.appendChild(div);
}
return true;`, ContainerClass, bindingName)

var ensureStylesheetBody = fmt.Sprintf(`
if (document.getElementById(%[1]q)) return false;
const style = document.createElement("style");
style.id = %[1]q;
style.textContent = args.css;
(document.head || document.body).appendChild(style);
return true;`, StyleElementID)

var openEditorBody = fmt.Sprintf(`
const product = args.product;
const box = (styles) => {
  const div = document.createElement("div");
  Object.assign(div.style, styles);
  return div;
};
const text = (tag, content) => {
  const el = document.createElement(tag);
  el.textContent = content;
  el.style.textAlign = "center";
  return el;
};
const field = (placeholder, value) => {
  const label = document.createElement("label");
  label.textContent = placeholder;
  const input = document.createElement("input");
  input.type = "text";
  input.placeholder = placeholder;
  input.value = value === null || value === undefined ? "" : String(value);
  return { label, input };
};
const overlay = box({
  position: "fixed", top: "0", left: "0", width: "100%%", height: "100%%",
  backgroundColor: "rgba(0,0,0,0.5)", zIndex: "999",
});
const popup = box({
  position: "fixed", top: "50%%", left: "50%%", transform: "translate(-50%%, -50%%)",
  backgroundColor: "#FFF", padding: "20px", zIndex: "1000", display: "flex",
  flexDirection: "column", gap: "10px", width: "400px",
});
const asin = field("Amazon ASIN", product.asin);
const current = field("Aktueller Preis auf Amazon (Format: 00.00€)", product.current_amazon_price);
const max = field("Kauf lohnt ab (Format 00.00€)", product.visynet_max_price);
const close = () => {
  popup.remove();
  overlay.remove();
};
const save = document.createElement("button");
save.textContent = "Speichern";
save.addEventListener("click", () => {
  window.%[1]s(JSON.stringify({
    kind: "save",
    id: product.id,
    asin: asin.input.value,
    current_amazon_price: current.input.value,
    visynet_max_price: max.input.value,
  }));
  close();
});
const cancel = document.createElement("button");
cancel.textContent = "Schließen";
cancel.addEventListener("click", close);
popup.append(
  text("h2", product.title),
  text("p", "Product ID: " + product.id),
  text("p", "Originalnummer: " + (product.original_number || "")),
  asin.label, asin.input,
  current.label, current.input,
  max.label, max.input,
  save, cancel,
);
document.body.appendChild(overlay);
document.body.appendChild(popup);
return true;`, bindingName)

// alertBody defers the dialog so the evaluation does not block on it.
const alertBody = `
setTimeout(() => window.alert(args.message), 0);
return true;`
