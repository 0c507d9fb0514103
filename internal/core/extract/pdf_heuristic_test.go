package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildShowTextPDF assembles a buffer shaped like the content stream of a
// real PDF: text drawn through parenthesis-delimited show-text payloads
// surrounded by structural noise.
func buildShowTextPDF(payloads []string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nstream\nBT /F1 12 Tf 72 720 Td\n")
	for _, p := range payloads {
		b.WriteString("(" + p + ") Tj\n")
	}
	b.WriteString("ET\nendstream\nendobj\ntrailer\nstartxref\n")
	return []byte(b.String())
}

func TestHeuristicExtractParenRuns(t *testing.T) {
	payloads := []string{
		"This Agreement is entered into between the Lessor and the Lessee.",
		"The monthly rent shall be Rs. 25,000 payable in advance.",
		"Either party may terminate this Agreement with sixty days notice.",
		"The security deposit shall be refunded within thirty days of vacation.",
	}
	text := heuristicExtract(buildShowTextPDF(payloads))

	require.NotEmpty(t, text)
	assert.Contains(t, text, "Agreement is entered into")
	assert.Contains(t, text, "25,000")

	// structural tokens never leak into the output
	for _, kw := range []string{"endobj", "stream", "startxref", "Tj", "BT"} {
		assert.NotContains(t, text, kw)
	}
	assert.NotContains(t, text, "/F1")
}

func TestHeuristicExtractJoinsContinuations(t *testing.T) {
	// short runs without terminal punctuation are fragments of one sentence
	payloads := []string{
		"The parties hereby agree that the term of",
		"this lease shall commence on the first day",
		"of January and continue for eleven months.",
		"All disputes shall be referred to arbitration in accordance with law.",
		"The Lessee shall maintain the premises in good and tenantable condition.",
	}
	text := heuristicExtract(buildShowTextPDF(payloads))

	require.NotEmpty(t, text)
	assert.Contains(t, text, "the term of this lease shall commence")
}

func TestHeuristicExtractEscapes(t *testing.T) {
	payloads := []string{
		`The Lessor\n shall provide\t the premises in habitable condition today.`,
		"The Lessee agrees to pay all utility charges during the tenancy period.",
		"Any structural alteration requires prior written consent of the Lessor.",
	}
	text := heuristicExtract(buildShowTextPDF(payloads))

	require.NotEmpty(t, text)
	assert.NotContains(t, text, `\n`)
	assert.NotContains(t, text, `\t`)
}

func TestHeuristicExtractWordRunFallback(t *testing.T) {
	// no parenthesised payloads at all, but readable word runs in the body
	raw := "\x00\x01\x02 the quick brown fox jumps over the lazy dog and keeps running through the field " +
		"while the agreement remains valid between both contracting parties for eleven months \x03\x04" +
		" the deposit shall remain refundable until the final inspection has been completed without damage"
	text := heuristicExtract([]byte(raw))

	require.NotEmpty(t, text)
	assert.Contains(t, text, "quick brown fox")
}

func TestHeuristicExtractGivesUpOnBinary(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 7) // control bytes only, no letters
	}
	assert.Empty(t, heuristicExtract(data))
}

func TestHeuristicExtractCapsOutput(t *testing.T) {
	payload := strings.Repeat("The rent is due on the first business day of every month. ", 400)
	text := heuristicExtract(buildShowTextPDF([]string{payload}))
	assert.LessOrEqual(t, len(text), maxPrimaryChars+2) // allow trailing paragraph break
}

func TestStripPDFKeywords(t *testing.T) {
	got := stripPDFKeywords("obj the endstream agreement Tj survives trailer")
	assert.Equal(t, "the agreement survives", got)
}

func TestDecodeLatin1NeverFails(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x80, 0x41}
	s := decodeLatin1(data)
	assert.Equal(t, 4, len([]rune(s)))
	assert.Equal(t, 'A', []rune(s)[3])
}

func TestCapAtKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("a", 9) + "₹₹"
	got := capAt(text, 10)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 9), got)
	assert.Equal(t, text, capAt(text, len(text)))
}
