// Package ingest reads SMS backup documents into message entries.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"github.com/nimasrn/momo-analyzer/internal/model"
)

// ErrInvalidDocument is returned when the list of entries cannot be obtained at all.
var ErrInvalidDocument = errors.New("invalid sms backup document")

const (
	smsTag           = "sms"
	attrBody         = "body"
	attrDate         = "date"
	attrReadableDate = "readable_date"
)

// ReadDocument parses an <smses><sms body=".." date=".." readable_date=".."/>...</smses> document.
// Missing attributes fall back to "" (body, readable_date) and "0" (date).
func ReadDocument(r io.Reader) ([]model.MessageEntry, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidDocument)
	}

	elements := root.SelectElements(smsTag)
	entries := make([]model.MessageEntry, 0, len(elements))
	for _, el := range elements {
		entries = append(entries, model.MessageEntry{
			Body:         el.SelectAttrValue(attrBody, ""),
			Date:         el.SelectAttrValue(attrDate, "0"),
			ReadableDate: el.SelectAttrValue(attrReadableDate, ""),
		})
	}
	return entries, nil
}

// ReadFile opens path and reads it with ReadDocument.
func ReadFile(path string) ([]model.MessageEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadDocument(f)
}
