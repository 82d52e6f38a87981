package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FactCategory names one of the three fact buckets kept per student.
type FactCategory string

const (
	CategoryAcademic FactCategory = "academic"
	CategoryCareer   FactCategory = "career"
	CategoryPersonal FactCategory = "personal"
)

// FactCategories lists the buckets in rendering order.
var FactCategories = []FactCategory{CategoryAcademic, CategoryCareer, CategoryPersonal}

// ParseFactCategory accepts any casing ("ACADEMIC", "Academic", "academic").
func ParseFactCategory(s string) (FactCategory, error) {
	c := FactCategory(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryAcademic, CategoryCareer, CategoryPersonal:
		return c, nil
	}
	return "", fmt.Errorf("unknown fact category %q", s)
}

// Label is the upper-case section name used in prompts.
func (c FactCategory) Label() string { return strings.ToUpper(string(c)) }

// FactStatus tells whether an extracted fact is new, changed or re-stated.
// It is informational only; every status overwrites the live entry.
type FactStatus string

const (
	FactNew          FactStatus = "NEW"
	FactUpdated      FactStatus = "UPDATED"
	FactConfirmation FactStatus = "CONFIRMATION"
)

// ParseFactStatus maps unknown values to FactNew.
func ParseFactStatus(s string) FactStatus {
	switch st := FactStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case FactNew, FactUpdated, FactConfirmation:
		return st
	}
	return FactNew
}

// FactEntry is the live value stored under facts.<category>.<key>.
type FactEntry struct {
	Value       interface{} `bson:"value" json:"value"`
	LastUpdated time.Time   `bson:"last_updated" json:"last_updated"`
	Confidence  float64     `bson:"confidence" json:"confidence"`
}

// FactItem pairs a key with its entry so buckets keep insertion order.
type FactItem struct {
	Key   string
	Entry FactEntry
}

// FactBucket is an ordered key -> entry mapping. It encodes as a plain
// document/object in both BSON and JSON, preserving key order.
type FactBucket []FactItem

// Get returns the entry stored under key.
func (b FactBucket) Get(key string) (FactEntry, bool) {
	for _, it := range b {
		if it.Key == key {
			return it.Entry, true
		}
	}
	return FactEntry{}, false
}

// Set returns a bucket with key overwritten in place, or appended when absent.
// The receiver is not modified.
func (b FactBucket) Set(key string, entry FactEntry) FactBucket {
	out := make(FactBucket, len(b), len(b)+1)
	copy(out, b)
	for i := range out {
		if out[i].Key == key {
			out[i].Entry = entry
			return out
		}
	}
	return append(out, FactItem{Key: key, Entry: entry})
}

// MarshalBSONValue writes the bucket as an embedded document.
func (b FactBucket) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d := make(bson.D, 0, len(b))
	for _, it := range b {
		d = append(d, bson.E{Key: it.Key, Value: it.Entry})
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue reads an embedded document in stored key order. Values
// that are not envelopes are wrapped as a bare value.
func (b *FactBucket) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*b = nil
		return nil
	}
	if t != bsontype.EmbeddedDocument {
		return fmt.Errorf("fact bucket: unexpected bson type %s", t)
	}
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}
	out := make(FactBucket, 0, len(elems))
	for _, el := range elems {
		rv := el.Value()
		var entry FactEntry
		if rv.Type == bsontype.EmbeddedDocument && rv.Document().Lookup("value").Type != 0 {
			if err := rv.Unmarshal(&entry); err != nil {
				return fmt.Errorf("fact %q: %w", el.Key(), err)
			}
		} else {
			var v interface{}
			if err := rv.Unmarshal(&v); err != nil {
				return fmt.Errorf("fact %q: %w", el.Key(), err)
			}
			entry.Value = v
		}
		entry.Value = NormalizeValue(entry.Value)
		out = append(out, FactItem{Key: el.Key(), Entry: entry})
	}
	*b = out
	return nil
}

// MarshalJSON writes the bucket as an object, preserving key order.
func (b FactBucket) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(it.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(it.Entry)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeJSONEntry reads an envelope, or wraps any other value as a bare value.
func decodeJSONEntry(raw json.RawMessage) (FactEntry, error) {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) == nil {
		if _, ok := fields["value"]; ok {
			var entry FactEntry
			err := json.Unmarshal(raw, &entry)
			return entry, err
		}
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return FactEntry{}, err
	}
	return FactEntry{Value: v}, nil
}

// UnmarshalJSON reads an object, preserving key order. Values that are not
// envelopes are wrapped as a bare value.
func (b *FactBucket) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fact bucket: expected object, got %v", tok)
	}
	var out FactBucket
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("fact %q: %w", key, err)
		}
		entry, err := decodeJSONEntry(raw)
		if err != nil {
			return fmt.Errorf("fact %q: %w", key, err)
		}
		out = append(out, FactItem{Key: key, Entry: entry})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// StudentFacts holds the three fact buckets of a student.
type StudentFacts struct {
	Academic FactBucket `bson:"academic" json:"academic"`
	Career   FactBucket `bson:"career" json:"career"`
	Personal FactBucket `bson:"personal" json:"personal"`
}

// Bucket returns the bucket for c.
func (f StudentFacts) Bucket(c FactCategory) FactBucket {
	switch c {
	case CategoryAcademic:
		return f.Academic
	case CategoryCareer:
		return f.Career
	case CategoryPersonal:
		return f.Personal
	}
	return nil
}

// With returns a copy of f with key set in bucket c.
func (f StudentFacts) With(c FactCategory, key string, entry FactEntry) StudentFacts {
	switch c {
	case CategoryAcademic:
		f.Academic = f.Academic.Set(key, entry)
	case CategoryCareer:
		f.Career = f.Career.Set(key, entry)
	case CategoryPersonal:
		f.Personal = f.Personal.Set(key, entry)
	}
	return f
}

// Len is the total number of facts across buckets.
func (f StudentFacts) Len() int {
	return len(f.Academic) + len(f.Career) + len(f.Personal)
}

// ExtractedFact is a fact proposed by the extraction model.
type ExtractedFact struct {
	Category   FactCategory `json:"category"`
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Status     FactStatus   `json:"status"`
	Confidence float64      `json:"confidence"`
}

// Contradiction is surfaced by the extraction model when new information
// conflicts with a stored fact.
type Contradiction struct {
	Existing       string `json:"existing"`
	NewInformation string `json:"new_information"`
	Resolution     string `json:"resolution"`
}

// FactExtractionResult is the outcome of one extraction run.
type FactExtractionResult struct {
	ExtractedFacts []ExtractedFact `json:"extracted_facts"`
	Contradictions []Contradiction `json:"contradictions"`
}

// Empty reports whether nothing was extracted.
func (r FactExtractionResult) Empty() bool {
	return len(r.ExtractedFacts) == 0 && len(r.Contradictions) == 0
}

// FactEvent is an immutable record in the fact-event log.
type FactEvent struct {
	ID             string       `bson:"_id,omitempty" json:"id"`
	StudentID      string       `bson:"student_id" json:"student_id"`
	ConversationID string       `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`
	Category       FactCategory `bson:"category" json:"category"`
	Key            string       `bson:"key" json:"key"`
	Value          interface{}  `bson:"value" json:"value"`
	Status         FactStatus   `bson:"status" json:"status"`
	Confidence     float64      `bson:"confidence" json:"confidence"`
	ExtractedAt    time.Time    `bson:"extracted_at" json:"extracted_at"`
}

// NormalizeValue converts BSON container types into plain maps and slices so
// fact values render and serialise the same regardless of where they came from.
func NormalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = NormalizeValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = NormalizeValue(e)
		}
		return m
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	}
	return v
}
