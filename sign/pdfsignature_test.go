package sign

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestCreateSignaturePlaceholder(t *testing.T) {
	context := &SignContext{
		SignatureMaxLength: 16,
		SignData: SignData{
			Info: SignatureInfo{
				Name:     "Test Signer",
				Reason:   "Testing",
				Location: "Brasil",
				Date:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		},
	}
	context.SignData.objectId = 5

	object, byteRangeStart, contentsStart := context.createSignaturePlaceholder()

	if !bytes.HasPrefix(object, []byte("5 0 obj\n")) {
		t.Errorf("object header missing, got %q", object[:20])
	}
	if got := string(object[byteRangeStart : byteRangeStart+int64(len("/ByteRange["))]); got != "/ByteRange[" {
		t.Errorf("byteRangeStart points at %q", got)
	}
	if object[contentsStart] != '<' {
		t.Errorf("contentsStart points at %q, want '<'", object[contentsStart])
	}

	reservation := object[contentsStart+1 : contentsStart+1+16]
	if string(reservation) != strings.Repeat("0", 16) {
		t.Errorf("reservation = %q, want 16 zeros", reservation)
	}
	if object[contentsStart+17] != '>' {
		t.Errorf("reservation not closed, got %q", object[contentsStart+17])
	}

	for _, want := range []string{"/Type /Sig", "/Filter /Adobe.PPKLite",
		"/SubFilter /adbe.pkcs7.detached", "(Test Signer)", "(Testing)", "(Brasil)",
		"(D:20240102030405+00'00')"} {
		if !bytes.Contains(object, []byte(want)) {
			t.Errorf("placeholder missing %q", want)
		}
	}
	if !bytes.HasSuffix(object, []byte("endobj\n")) {
		t.Error("object not terminated with endobj")
	}
}

func TestCreateSignaturePlaceholderOmitsEmptyEntries(t *testing.T) {
	context := &SignContext{
		SignatureMaxLength: 4,
		SignData: SignData{
			Info: SignatureInfo{Date: time.Now()},
		},
	}
	context.SignData.objectId = 1

	object, _, _ := context.createSignaturePlaceholder()
	for _, key := range []string{"/Name", "/Location", "/Reason", "/ContactInfo"} {
		// Text entries open with '(': /Prop_Build carries its own
		// /Name with a name value, which must not trip this check.
		if bytes.Contains(object, []byte(key+" (")) {
			t.Errorf("empty %s must not be written", key)
		}
	}
}
