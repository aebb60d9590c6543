package sign

import (
	"fmt"
	"io"
	"strings"
)

// updateByteRange rewrites the /ByteRange sentinel with the final
// offsets. This runs after every appended byte is in place and before
// digesting, because the rewritten values are themselves part of the
// hashed ranges. The replacement is padded to the sentinel's exact
// length so no offset moves.
func (context *SignContext) updateByteRange() error {
	totalLength, err := context.OutputBuffer.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	// The hashed ranges exclude the whole /Contents hex string,
	// delimiters included.
	contentsEnd := context.SignatureContentsStartByte + int64(context.SignatureMaxLength) + 2

	context.ByteRangeValues = []int64{
		0,
		context.SignatureContentsStartByte,
		contentsEnd,
		totalLength - contentsEnd,
	}

	if context.SignatureContentsStartByte <= 0 || contentsEnd > totalLength {
		return fmt.Errorf("%w: contents at [%d, %d), output length %d",
			ErrRangeOverflow, context.SignatureContentsStartByte, contentsEnd, totalLength)
	}

	byteRange := fmt.Sprintf("/ByteRange[%d %d %d %d]",
		context.ByteRangeValues[0], context.ByteRangeValues[1],
		context.ByteRangeValues[2], context.ByteRangeValues[3])
	if len(byteRange) > len(signatureByteRangePlaceholder) {
		return fmt.Errorf("%w: byte range %q wider than its sentinel", ErrRangeOverflow, byteRange)
	}
	byteRange += strings.Repeat(" ", len(signatureByteRangePlaceholder)-len(byteRange))

	// Patch the materialized buffer directly. The buffer's Write is
	// append-only; writing after an interior Seek would truncate
	// everything around the seek position.
	output := context.OutputBuffer.Buff.Bytes()
	if context.ByteRangeStartByte+int64(len(byteRange)) > int64(len(output)) {
		return fmt.Errorf("%w: sentinel at %d outside %d bytes",
			ErrRangeOverflow, context.ByteRangeStartByte, len(output))
	}
	copy(output[context.ByteRangeStartByte:], byteRange)

	return nil
}

// signedContent concatenates the two hashed ranges in order. The
// reserved placeholder never appears in the result, which is what lets
// the final signature be patched in without invalidating the digest.
func (context *SignContext) signedContent() ([]byte, error) {
	if _, err := context.OutputBuffer.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	fileContent := context.OutputBuffer.Buff.Bytes()

	br := context.ByteRangeValues
	if len(br) != 4 {
		return nil, fmt.Errorf("%w: byte ranges not computed", ErrRangeOverflow)
	}
	for i := 0; i < 4; i += 2 {
		if br[i] < 0 || br[i+1] < 0 || br[i]+br[i+1] > int64(len(fileContent)) {
			return nil, fmt.Errorf("%w: range [%d, +%d) outside %d bytes",
				ErrRangeOverflow, br[i], br[i+1], len(fileContent))
		}
	}

	content := make([]byte, 0, br[1]+br[3])
	content = append(content, fileContent[br[0]:br[0]+br[1]]...)
	content = append(content, fileContent[br[2]:br[2]+br[3]]...)
	return content, nil
}
