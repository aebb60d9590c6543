package sign

import (
	"strconv"
	"strings"
)

// createCatalog serializes the replacement document catalog. The
// incremental update never touches the original catalog object; a new
// one with the same /Pages (and /Names) references takes over as /Root
// and carries the AcroForm listing every existing field plus the new
// signature field.
func (context *SignContext) createCatalog() ([]byte, error) {
	var b strings.Builder

	b.WriteString(strconv.Itoa(int(context.CatalogData.ObjectId)) + " 0 obj\n")
	b.WriteString("<< /Type /Catalog")

	root := context.PDFReader.Trailer().Key("Root")
	for _, key := range root.Keys() {
		switch key {
		case "Type", "AcroForm":
			// Type is rewritten above, AcroForm below.
		default:
			b.WriteString(" /" + key + " " + serializeValue(root.Key(key)))
		}
	}

	b.WriteString(" /AcroForm << /Fields [")
	for i, id := range context.existingFields {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strconv.Itoa(int(id)) + " 0 R")
	}
	if len(context.existingFields) > 0 {
		b.WriteString(" ")
	}
	b.WriteString(strconv.Itoa(int(context.VisualSignData.objectId)) + " 0 R")
	b.WriteString("]")

	b.WriteString(" /NeedAppearances false")

	// SigFlags 3: SignaturesExist | AppendOnly. Append-only saving is
	// what keeps the incremental update from invalidating this
	// signature.
	b.WriteString(" /SigFlags 3")

	b.WriteString(" >>")
	b.WriteString(" >>\nendobj\n")

	return []byte(b.String()), nil
}
