package httpmsg

import "unicode/utf8"

// ExtractBodyText decides how to expose a decompressed body: if the
// content type looks textual and the bytes are valid UTF-8, it's stored
// as a string; otherwise the raw bytes are kept and text is a best-effort
// lossy view.
func ExtractBodyText(headers map[string]string, body []byte) (text string, rawBytes []byte, isText bool) {
	if IsTextual(headers) && utf8.Valid(body) {
		return string(body), nil, true
	}
	return lossyUTF8(body), body, false
}

func lossyUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	buf := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, utf8.RuneError)
			i++
			continue
		}
		buf = append(buf, r)
		i += size
	}
	return string(buf)
}
