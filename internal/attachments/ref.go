// Package attachments manages the blob references stored on expense records:
// the bare-id and descriptor reference shapes, kept-set reconciliation,
// upload fan-out into the blob store, display resolution, and streamed download.
package attachments

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Placeholder filenames for references whose blob metadata cannot be read.
const (
	UnknownFilename = "Unknown File"
	LegacyFilename  = "Legacy File"
)

// ErrMalformedRef indicates a stored reference is neither a string nor an object with an id.
var ErrMalformedRef = errors.New("malformed attachment reference")

// Descriptor is the display shape of an attachment.
type Descriptor struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty"`
	PageCount    *int   `json:"pageCount,omitempty"`
	ViewLink     string `json:"viewLink,omitempty"`
	DownloadLink string `json:"downloadLink,omitempty"`
}

// Ref is a stored attachment reference: either a bare blob id carried over
// from older records or a full descriptor. The zero value is invalid.
type Ref struct {
	id   string
	desc *Descriptor
}

// BareRef returns a reference holding only a blob id.
func BareRef(id string) Ref {
	return Ref{id: id}
}

// DescriptorRef returns a reference holding full descriptor metadata.
func DescriptorRef(d Descriptor) Ref {
	return Ref{id: d.ID, desc: &d}
}

// ID returns the referenced blob id for either shape.
func (r Ref) ID() string {
	return r.id
}

// IsBare reports whether r carries only an id.
func (r Ref) IsBare() bool {
	return r.desc == nil
}

// Descriptor returns the descriptor and true, or a zero Descriptor and false for bare ids.
func (r Ref) Descriptor() (Descriptor, bool) {
	if r.desc == nil {
		return Descriptor{}, false
	}
	return *r.desc, true
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.desc == nil {
		return json.Marshal(r.id)
	}
	return json.Marshal(r.desc)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrMalformedRef
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		if id == "" {
			return ErrMalformedRef
		}
		*r = BareRef(id)
		return nil
	case '{':
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		if d.ID == "" {
			return ErrMalformedRef
		}
		*r = DescriptorRef(d)
		return nil
	default:
		return ErrMalformedRef
	}
}

// List is the ordered attachment list persisted as a JSONB column.
type List []Ref

// IDs returns the blob id of every reference in order.
func (l List) IDs() []string {
	ids := make([]string, len(l))
	for i, r := range l {
		ids[i] = r.ID()
	}
	return ids
}

// Contains reports whether any reference points at id.
func (l List) Contains(id string) bool {
	for _, r := range l {
		if r.ID() == id {
			return true
		}
	}
	return false
}

// Without returns a copy of l with every reference to id removed.
func (l List) Without(id string) List {
	out := make(List, 0, len(l))
	for _, r := range l {
		if r.ID() != id {
			out = append(out, r)
		}
	}
	return out
}

// Value encodes the list for a JSONB column. A nil list is stored as [].
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Ref(l))
}

// Scan decodes a JSONB column.
func (l *List) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = List{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan attachments: unsupported type %T", src)
	}

	var refs []Ref
	if err := json.Unmarshal(data, &refs); err != nil {
		return fmt.Errorf("scan attachments: %w", err)
	}
	if refs == nil {
		refs = []Ref{}
	}
	*l = refs
	return nil
}
