package sign

import (
	"crypto"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/digitorus/pdf"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// pdfString encodes text as a PDF string literal. Non-ASCII text is
// written as UTF-16BE with a BOM, ASCII as an escaped literal.
func pdfString(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			panic(err)
		}
		return "(" + res + ")"
	}

	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"(", "\\(",
		")", "\\)",
		"\r", "\\r",
	)
	return "(" + replacer.Replace(text) + ")"
}

// pdfDateTime renders a time as a PDF date string (D:YYYYMMDDHHmmSS
// with a timezone suffix in the O'HH'mm' form).
func pdfDateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	minutes := (offset % 3600) / 60

	return pdfString(fmt.Sprintf("D:%s%s%02d'%02d'", date.Format("20060102150405"), sign, hours, minutes))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > '\u007F' {
			return false
		}
	}
	return true
}

// collectPages walks the page tree in document order and returns the
// page objects as resolved values. The values keep their origin
// pointers, so GetPtr still yields the page object numbers.
func collectPages(node pdf.Value) []pdf.Value {
	switch node.Key("Type").String() {
	case "/Pages":
		var pages []pdf.Value
		kids := node.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			pages = append(pages, collectPages(kids.Index(i))...)
		}
		return pages
	case "/Page":
		return []pdf.Value{node}
	default:
		return nil
	}
}

// serializeValue writes a parsed PDF value back in file syntax.
// Indirect objects are written as references, everything else inline.
func serializeValue(v pdf.Value) string {
	if ptr := v.GetPtr(); ptr.GetID() != 0 {
		return strconv.Itoa(int(ptr.GetID())) + " " + strconv.Itoa(int(ptr.GetGen())) + " R"
	}
	return serializeInline(v)
}

func serializeInline(v pdf.Value) string {
	switch v.Kind() {
	case pdf.Bool:
		return strconv.FormatBool(v.Bool())
	case pdf.Integer:
		return strconv.FormatInt(v.Int64(), 10)
	case pdf.Real:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case pdf.String:
		// Hex form survives arbitrary bytes.
		return "<" + hex.EncodeToString([]byte(v.RawString())) + ">"
	case pdf.Name:
		return v.String()
	case pdf.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts = append(parts, serializeValue(v.Index(i)))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case pdf.Dict, pdf.Stream:
		var b strings.Builder
		b.WriteString("<<")
		for _, key := range v.Keys() {
			b.WriteString(" /" + key + " " + serializeValue(v.Key(key)))
		}
		b.WriteString(" >>")
		return b.String()
	default:
		return "null"
	}
}

var hashOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   asn1.ObjectIdentifier([]int{1, 3, 14, 3, 2, 26}),
	crypto.SHA256: asn1.ObjectIdentifier([]int{2, 16, 840, 1, 101, 3, 4, 2, 1}),
	crypto.SHA384: asn1.ObjectIdentifier([]int{2, 16, 840, 1, 101, 3, 4, 2, 2}),
	crypto.SHA512: asn1.ObjectIdentifier([]int{2, 16, 840, 1, 101, 3, 4, 2, 3}),
}

func getOIDFromHashAlgorithm(target crypto.Hash) asn1.ObjectIdentifier {
	for hash, oid := range hashOIDs {
		if hash == target {
			return oid
		}
	}
	return nil
}
