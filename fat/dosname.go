package fat

import (
	"strings"

	"github.com/hairymnstr/gristle"
)

// dosCharClass is the classification dosChar assigns to a source byte when
// building an 8.3 name.
type dosCharClass int

const (
	dosCharEnd dosCharClass = iota
	dosCharIllegal
	dosCharSeparator
	dosCharDot
	dosCharValid
)

// dosChar classifies a single byte of a path component and, for valid bytes,
// returns its on-disk encoding. Grounded on gristle.c's
// doschar: ASCII letters upper-case, digits pass through, 0xE5 is remapped to
// 0x05 (DOS's own workaround so a real filename byte never collides with the
// directory entry's "deleted" marker), and a fixed punctuation set is allowed
// verbatim.
func dosChar(c byte) (dosCharClass, byte) {
	switch {
	case c == 0:
		return dosCharEnd, 0
	case c == '/' || c == '\\':
		return dosCharSeparator, '/'
	case c == '.':
		return dosCharDot, '.'
	case c >= 'A' && c <= 'Z':
		return dosCharValid, c
	case c >= '0' && c <= '9':
		return dosCharValid, c
	case c >= 'a' && c <= 'z':
		return dosCharValid, c - 'a' + 'A'
	case c == 0xE5:
		return dosCharValid, 0x05
	case c > 127:
		return dosCharValid, c
	case strings.IndexByte("!#$%&'()-@^_`{}~ ", c) >= 0:
		return dosCharValid, c
	default:
		return dosCharIllegal, 0
	}
}

// errIllegalDOSChar marks a path component containing a byte that has no 8.3
// encoding. errDOSNameTooLong marks one whose base name or extension
// overflows 8 or 3 bytes respectively.
var (
	errIllegalDOSChar = gristle.NewDriverError(gristle.EINVAL)
	errDOSNameTooLong = gristle.NewDriverError(gristle.ENAMETOOLONG)
)

// makeDOSName consumes one path component, starting at *cursor within path,
// and encodes it into an 11-byte space-padded short name (8 bytes of base
// name, 3 of extension). On return, *cursor points at the separator or
// end-of-string that terminated the component.
//
// Grounded on gristle.c's make_dos_name.
func makeDOSName(path string, cursor *int) ([11]byte, error) {
	var name [11]byte
	for i := range name {
		name[i] = ' '
	}

	nextByte := func() byte {
		if *cursor >= len(path) {
			*cursor++
			return 0
		}
		b := path[*cursor]
		*cursor++
		return b
	}

	class, c := dosChar(nextByte())

	for i := 0; i < 8; i++ {
		switch class {
		case dosCharSeparator, dosCharEnd:
			// name[i] stays a space; leave class/c alone so the loop below
			// sees the terminator again.
		case dosCharDot:
			if i == 0 {
				name[i] = '.'
				class, c = dosChar(nextByte())
			} else if i == 1 {
				if *cursor >= len(path) || func() bool { cl, _ := dosChar(path[*cursor]); return cl == dosCharSeparator }() {
					name[i] = '.'
					class, c = dosChar(nextByte())
				}
			}
		case dosCharIllegal:
			return name, errIllegalDOSChar
		default:
			name[i] = c
			class, c = dosChar(nextByte())
		}
	}

	extensionFollows := false
	switch class {
	case dosCharDot:
		extensionFollows = true
		class, c = dosChar(nextByte())
	case dosCharSeparator, dosCharEnd:
		extensionFollows = false
	default:
		// A ninth base-name byte: the base name overflows 8 bytes.
		return name, errDOSNameTooLong
	}

	for i := 0; i < 3; i++ {
		if !extensionFollows {
			continue
		}
		switch class {
		case dosCharSeparator, dosCharEnd:
			// stays a space
		case dosCharIllegal, dosCharDot:
			return name, errIllegalDOSChar
		default:
			name[8+i] = c
			class, c = dosChar(nextByte())
		}
	}

	*cursor--

	if class != dosCharSeparator && class != dosCharEnd {
		return name, errDOSNameTooLong
	}
	return name, nil
}

// strToFATName converts a user-supplied filename into a dotted short-name
// candidate, synthesizing a "BASENA~1"-style tilde name when the true name
// or extension overflows 8.3. Callers run makeDOSName on the result to get
// the final padded on-disk form.
//
// Grounded on gristle.c's str_to_fatname.
func strToFATName(userName string) (string, error) {
	base := userName
	ext := ""
	if idx := strings.LastIndexByte(userName, '.'); idx >= 0 {
		base = userName[:idx]
		ext = userName[idx+1:]
	}

	if len(base) <= 8 && len(ext) <= 3 {
		return userName, nil
	}

	var encoded strings.Builder
	count := 0
	for count < 6 && count < len(userName) {
		class, c := dosChar(userName[count])
		switch class {
		case dosCharIllegal:
			return "", errIllegalDOSChar
		case dosCharEnd:
			return encoded.String(), nil
		case dosCharDot:
			goto tilde
		default:
			encoded.WriteByte(c)
		}
		count++
	}

tilde:
	encoded.WriteString("~1")

	if idx := strings.LastIndexByte(userName, '.'); idx >= 0 {
		encoded.WriteByte('.')
		encoded.WriteString(userName[idx+1:])
	}

	return encoded.String(), nil
}

// fatNameToStr converts an on-disk 11-byte short name into the user-visible
// dotted form, stripping trailing padding and adding the dot only when an
// extension is present.
//
// Grounded on gristle.c's fatname_to_str.
func fatNameToStr(raw [11]byte) string {
	base := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")

	if ext == "" {
		return base
	}
	return base + "." + ext
}
