package services

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLTreeDecoder converts an XML document into the generic tree shape the
// JSON decoder produces: map[string]any objects, []any arrays and string
// leaves. Repeated sibling elements become arrays, leaf elements become their
// trimmed text. The document is wrapped in a single-key map carrying the root
// element name.
type XMLTreeDecoder struct{}

// Decode parses the document. Attributes are dropped, only the element tree
// is kept.
func (XMLTreeDecoder) Decode(data []byte) (map[string]any, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("xml document has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}

		if start, ok := token.(xml.StartElement); ok {
			value, err := decodeXMLElement(decoder)
			if err != nil {
				return nil, err
			}
			return map[string]any{start.Name.Local: value}, nil
		}
	}
}

// decodeXMLElement consumes tokens until the matching end element and returns
// either a child map or the text content.
func decodeXMLElement(decoder *xml.Decoder) (any, error) {
	children := map[string]any{}
	var text strings.Builder
	hasChildren := false

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := decodeXMLElement(decoder)
			if err != nil {
				return nil, err
			}
			appendXMLChild(children, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if hasChildren {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}

func appendXMLChild(children map[string]any, name string, value any) {
	existing, ok := children[name]
	if !ok {
		children[name] = value
		return
	}

	if list, isList := existing.([]any); isList {
		children[name] = append(list, value)
		return
	}
	children[name] = []any{existing, value}
}
