package cli

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/brdoc/padessign"
	"github.com/brdoc/padessign/config"
)

func SignCommand() {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	var (
		passphrase    string
		configPath    string
		name          string
		location      string
		reason        string
		contact       string
		useTimestamp  bool
		tsaURL        string
		embedStatus   bool
		visible       bool
		page          uint
		rect          rectFlag
		signatureSize uint
	)

	signFlags.StringVar(&passphrase, "password", "", "Passphrase of the PKCS#12 archive (or set PADESSIGN_PASSWORD)")
	signFlags.StringVar(&configPath, "config", "", "Signing profile to load (TOML)")
	signFlags.StringVar(&name, "name", "", "Name of the signatory")
	signFlags.StringVar(&location, "location", "", "Location of the signatory")
	signFlags.StringVar(&reason, "reason", "", "Reason for signing")
	signFlags.StringVar(&contact, "contact", "", "Contact information for signatory")
	signFlags.BoolVar(&useTimestamp, "timestamp", false, "Embed an RFC 3161 timestamp token")
	signFlags.StringVar(&tsaURL, "tsa", "", "URL for the Time-Stamp Authority")
	signFlags.BoolVar(&embedStatus, "embed-revocation", false, "Embed OCSP/CRL status for the signing chain")
	signFlags.BoolVar(&visible, "visible", false, "Place a visible signature widget")
	signFlags.UintVar(&page, "page", 1, "Page carrying the signature widget (1-based)")
	signFlags.Var(&rect, "rect", "Widget rectangle as llx,lly,urx,ury")
	signFlags.UintVar(&signatureSize, "signature-size", 0, "Override the signature reservation in bytes")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign [options] <input.pdf> <output.pdf> <identity.p12>\n\n", os.Args[0])
		fmt.Println("Sign a PDF file with a PAdES signature")
		fmt.Println("\nOptions:")
		signFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s sign -reason \"Aprovado\" input.pdf output.pdf identity.p12\n", os.Args[0])
		fmt.Printf("  %s sign -timestamp -embed-revocation input.pdf output.pdf identity.p12\n", os.Args[0])
	}

	if err := signFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse sign flags: %v", err)
		osExit(1)
		return
	}
	if len(signFlags.Args()) < 3 {
		signFlags.Usage()
		osExit(1)
		return
	}

	opts := padessign.Options{
		Name:                  name,
		Reason:                reason,
		Location:              location,
		ContactInfo:           contact,
		Timestamp:             useTimestamp,
		TSAURL:                tsaURL,
		EmbedRevocationStatus: embedStatus,
		Visible:               visible,
		Rect:                  rect.values,
		Page:                  uint32(page),
		SignatureSize:         uint32(signatureSize),
	}

	if configPath != "" {
		profile, err := config.Read(configPath)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
		applyProfile(&opts, profile)
	}

	if passphrase == "" {
		passphrase = os.Getenv("PADESSIGN_PASSWORD")
	}

	input := signFlags.Arg(0)
	output := signFlags.Arg(1)
	p12 := signFlags.Arg(2)

	if err := padessign.SignFile(input, output, p12, passphrase, opts); err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	fmt.Printf("Signed %s to %s\n", input, output)
}

// applyProfile fills options the command line left empty.
func applyProfile(opts *padessign.Options, profile config.Config) {
	if opts.Name == "" {
		opts.Name = profile.Name
	}
	if opts.Reason == "" {
		opts.Reason = profile.Reason
	}
	if opts.Location == "" {
		opts.Location = profile.Location
	}
	if opts.ContactInfo == "" {
		opts.ContactInfo = profile.ContactInfo
	}
	if opts.SignatureSize == 0 {
		opts.SignatureSize = profile.SignatureSize
	}
	if !opts.EmbedRevocationStatus {
		opts.EmbedRevocationStatus = profile.EmbedRevocationStatus
	}
	if profile.TSA.URL != "" {
		opts.Timestamp = true
		if opts.TSAURL == "" {
			opts.TSAURL = profile.TSA.URL
			opts.TSAUser = profile.TSA.Username
			opts.TSAPass = profile.TSA.Password
		}
	}
}

// rectFlag parses four comma-separated coordinates.
type rectFlag struct {
	values [4]float64
	set    bool
}

func (r *rectFlag) String() string {
	if !r.set {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", r.values[0], r.values[1], r.values[2], r.values[3])
}

func (r *rectFlag) Set(s string) error {
	n, err := fmt.Sscanf(s, "%g,%g,%g,%g", &r.values[0], &r.values[1], &r.values[2], &r.values[3])
	if err != nil || n != 4 {
		return fmt.Errorf("rect must be llx,lly,urx,ury")
	}
	r.set = true
	return nil
}
