// =============================================================================
// Payments Engine - XML Writer Module
// =============================================================================
//
// This module renders final account balances as an XML document for systems
// that ingest XML rather than CSV.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <accounts count="2">
//     <account client="1">
//       <available>1.5000</available>
//       <held>0.0000</held>
//       <total>1.5000</total>
//       <locked>false</locked>
//     </account>
//     <account client="2">
//       ...
//     </account>
//   </accounts>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// Precision is the number of decimal places written for amounts.
	// Default: 4
	Precision int32

	// RootElement is the name of the document element.
	// Default: "accounts"
	RootElement string

	// AccountElement is the name of each account element.
	// Default: "account"
	AccountElement string

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "http://example.com/schema"}
	RootAttributes map[string]string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		Precision:             4,
		RootElement:           "accounts",
		AccountElement:        "account",
		RootAttributes:        make(map[string]string),
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML document from account snapshots.
func Generate(accounts []ledger.AccountSnapshot, options GenerateOptions) []byte {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	doc := buildDocument(accounts, options)
	writeElement(&buffer, doc, options.Indent, 0)

	return buffer.Bytes()
}

// Write generates the document and writes it to w.
func Write(w io.Writer, accounts []ledger.AccountSnapshot, options GenerateOptions) error {
	if _, err := w.Write(Generate(accounts, options)); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}

	return nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the XML document structure.
func buildDocument(accounts []ledger.AccountSnapshot, options GenerateOptions) XMLElement {
	doc := XMLElement{
		XMLName: xml.Name{Local: options.RootElement},
		Attributes: []xml.Attr{
			{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(accounts))},
		},
	}

	// Sort root attributes for stable output.
	keys := make([]string, 0, len(options.RootAttributes))
	for key := range options.RootAttributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		doc.Attributes = append(doc.Attributes, xml.Attr{
			Name:  xml.Name{Local: key},
			Value: options.RootAttributes[key],
		})
	}

	for _, acc := range accounts {
		doc.Children = append(doc.Children, buildAccountElement(acc, options))
	}

	return doc
}

// buildAccountElement constructs one account element.
func buildAccountElement(acc ledger.AccountSnapshot, options GenerateOptions) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: options.AccountElement},
		Attributes: []xml.Attr{
			{Name: xml.Name{Local: "client"}, Value: strconv.FormatUint(uint64(acc.Client), 10)},
		},
		Children: []XMLElement{
			createSimpleElement("available", acc.Available.StringFixed(options.Precision)),
			createSimpleElement("held", acc.Held.StringFixed(options.Precision)),
			createSimpleElement("total", acc.Total.StringFixed(options.Precision)),
			createSimpleElement("locked", strconv.FormatBool(acc.Locked)),
		},
	}
}

// createSimpleElement creates an element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	// Self-closing tag.
	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}

	return buffer.String()
}
