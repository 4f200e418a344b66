package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// createTestDOCX builds a minimal DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDOCX_MIMETypes(t *testing.T) {
	extractor := NewDOCX()
	mimeTypes := extractor.MIMETypes()

	assert.Contains(t, mimeTypes,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.Len(t, mimeTypes, 1)
}

func TestDOCX_Extract(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`

	extractor := NewDOCX()
	text, err := extractor.Extract(context.Background(), createTestDOCX(t, docXML))
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph", text)
}

func TestDOCX_Extract_MultipleRuns(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
</w:body>
</w:document>`

	extractor := NewDOCX()
	text, err := extractor.Extract(context.Background(), createTestDOCX(t, docXML))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
}

func TestDOCX_Extract_InvalidArchive(t *testing.T) {
	extractor := NewDOCX()

	text, err := extractor.Extract(context.Background(), []byte("not a zip file"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, text)
}

func TestDOCX_Extract_MissingDocumentXML(t *testing.T) {
	extractor := NewDOCX()

	text, err := extractor.Extract(context.Background(), createTestDOCX(t, ""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseDocumentXML_Malformed(t *testing.T) {
	assert.Empty(t, parseDocumentXML([]byte("<w:document><unclosed")))
}
