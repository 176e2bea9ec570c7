// internal/capture/scripts.go
package capture

import "fmt"

// JavaScript evaluated inside the inspected page. Each snippet returns plain
// JSON-able data; all decisions are made on the Go side so they stay
// testable without a browser.

// metadataJS reads the page identity.
const metadataJS = `({
	url: location.href,
	domain: location.hostname,
	title: document.title
})`

// snapshotJS serializes the full document, doctype included.
const snapshotJS = `(document.doctype
	? '<!DOCTYPE ' + document.doctype.name + '>'
	: '') + document.documentElement.outerHTML`

// canvasProbeJS enumerates every canvas in document order. Serialization is
// attempted in-page because a tainted canvas only reveals itself by throwing
// on toDataURL; the error text is carried out instead of the pixels.
const canvasProbeJS = `Array.prototype.map.call(document.querySelectorAll('canvas'), function (c) {
	var out = { width: c.width, height: c.height, dataUrl: '', error: '' };
	if (c.width === 0 || c.height === 0) {
		return out;
	}
	try {
		out.dataUrl = c.toDataURL('image/png');
	} catch (err) {
		out.error = String(err);
	}
	return out;
})`

// imageProbeJS enumerates every image in document order.
const imageProbeJS = `Array.prototype.map.call(document.images, function (im) {
	return {
		src: im.src || '',
		currentSrc: im.currentSrc || '',
		complete: !!im.complete,
		naturalWidth: im.naturalWidth || 0,
		naturalHeight: im.naturalHeight || 0
	};
})`

// imageProbeAtJS re-reads a single image after its load settled.
func imageProbeAtJS(index int) string {
	return fmt.Sprintf(`(function (i) {
	var im = document.images[i];
	if (!im) {
		return { src: '', currentSrc: '', complete: true, naturalWidth: 0, naturalHeight: 0 };
	}
	return {
		src: im.src || '',
		currentSrc: im.currentSrc || '',
		complete: !!im.complete,
		naturalWidth: im.naturalWidth || 0,
		naturalHeight: im.naturalHeight || 0
	};
})(%d)`, index)
}

// imageSettledFnJS is a poll predicate: truthy once the image finished
// loading or erroring (the browser marks both as complete), or vanished from
// the document.
func imageSettledFnJS(index int) string {
	return fmt.Sprintf(`function () {
	var im = document.images[%d];
	return !im || !!im.complete;
}`, index)
}
