package source

import "slices"

// Normalize strips a UTF-8 BOM and rewrites CRLF line endings to LF. The
// second result reports whether anything changed.
func Normalize(content []byte) ([]byte, bool) {
	out, hadBOM := removeBOM(content)
	out, hadCRLF := normalizeCRLF(out)
	return out, hadBOM || hadCRLF
}

// normalizeCRLF replaces every \r\n with \n and leaves lone \r untouched.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false
	i := 0
	for i < len(content) {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i += 2
			changed = true
			continue
		}
		out = append(out, content[i])
		i++
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}
