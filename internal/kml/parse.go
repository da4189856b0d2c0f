package kml

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Parse decodes a KML document from the reader. A malformed document is
// fatal; nothing is salvaged from a document that does not decode.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "kml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var doc KML
	if err := decoder.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "kml: decode document")
	}
	return &doc.Document, nil
}

// ParseFile opens and decodes a KML file at the given path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kml: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Parse(f)
}
