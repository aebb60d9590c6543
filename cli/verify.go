package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/brdoc/padessign/verify"
)

func VerifyCommand() {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)

	var asJSON bool
	verifyFlags.BoolVar(&asJSON, "json", false, "Print the full verification result as JSON")

	verifyFlags.Usage = func() {
		fmt.Printf("Usage: %s verify [options] <input.pdf>\n\n", os.Args[0])
		fmt.Println("Verify the signatures of a PDF file")
		fmt.Println("\nOptions:")
		verifyFlags.PrintDefaults()
	}

	if err := verifyFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse verify flags: %v", err)
		osExit(1)
		return
	}
	if len(verifyFlags.Args()) < 1 {
		verifyFlags.Usage()
		osExit(1)
		return
	}

	response, err := verify.File(verifyFlags.Arg(0))
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			log.Println(err)
			osExit(1)
		}
		return
	}

	failed := false
	for i, signer := range response.Signers {
		status := "INVALID"
		if signer.ValidSignature {
			status = "valid"
			if !signer.TrustedIssuer {
				status = "valid (untrusted chain)"
			}
		}
		if !signer.ValidSignature || signer.RevokedCertificate {
			failed = true
		}
		fmt.Printf("Signature %d: %s\n", i+1, status)
		if signer.Name != "" {
			fmt.Printf("  Name:     %s\n", signer.Name)
		}
		if signer.Reason != "" {
			fmt.Printf("  Reason:   %s\n", signer.Reason)
		}
		if signer.Location != "" {
			fmt.Printf("  Location: %s\n", signer.Location)
		}
		if !signer.SigningTime.IsZero() {
			fmt.Printf("  Signed:   %s\n", signer.SigningTime)
		}
		if signer.TimeStamp != nil {
			fmt.Printf("  Timestamped: %s\n", signer.TimeStamp.Time)
		}
		if signer.RevokedCertificate {
			fmt.Println("  Certificate: REVOKED")
		}
		if !signer.WholeDocument {
			fmt.Println("  Note: content was appended after this signature")
		}
	}
	if failed {
		osExit(1)
	}
}
