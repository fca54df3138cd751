// Package domain defines the canonical inventory record, the raw-record
// boundary type, and the persistence and observability contracts used by
// piececore.
package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is the untyped shape of a record at the system boundary: remote
// documents, spreadsheet rows, and legacy locally-stored blobs all arrive as
// arbitrary string-keyed mappings. Raw records are normalized exactly once,
// at the field-normalizer boundary, before a typed Piece is constructed.
type RawRecord = map[string]any

// Canonical field names. Every recognized input key maps to exactly one of
// these; unrecognized keys pass through a Piece untouched via Extra.
const (
	FieldAPN                = "APN"
	FieldSPN                = "SPN"
	FieldHolderName         = "Holder Name"
	FieldConnecteurDPN      = "Connecteur DPN"
	FieldPartsHolder        = "Parts Holder"
	FieldSerialNumberHolder = "Serial Number Holder"
	FieldEquipment          = "Equipment"
	FieldSection            = "Section"
	FieldProjectLine        = "Project Line"
	FieldDescription        = "Description"
	FieldStorageLocation    = "Storage Location"
	FieldMRPType            = "MRP Type"
	FieldSuppliers          = "Suppliers"
	FieldUnitPrice          = "Unit Price"
	FieldUnrestrictedStock  = "Unrestricted Stock"
	FieldMin                = "Min"
	FieldMax                = "Max"
	FieldInTransit          = "In Transit"
	FieldMoreInformation    = "More Information"
	FieldImagePath          = "ImagePath"
	FieldID                 = "id"
)

// RequiredFields must be present and non-blank for a piece to validate.
var RequiredFields = []string{FieldAPN, FieldPartsHolder}

// NumericFields hold a float or null; the literal strings "N/A" and "" are
// accepted on input and coerce to null.
var NumericFields = []string{FieldUnitPrice, FieldUnrestrictedStock, FieldMin, FieldMax, FieldInTransit}

// ArrayFields always normalize to a sequence of strings, never a raw string.
var ArrayFields = []string{FieldHolderName}

// MaxAPNLength bounds the APN business key.
const MaxAPNLength = 100

// Piece is the canonical inventory record. ID is assigned by the remote
// service on creation and is empty for not-yet-persisted records. HolderName
// is never nil after normalization. Numeric attributes are nil when the
// source value was null, empty, or "N/A". Extra preserves unrecognized
// fields so no data is silently dropped.
type Piece struct {
	ID                 string
	APN                string
	SPN                string
	HolderName         []string
	ConnecteurDPN      string
	PartsHolder        string
	SerialNumberHolder string
	Equipment          string
	Section            string
	ProjectLine        string
	Description        string
	StorageLocation    string
	MRPType            string
	Suppliers          string
	MoreInformation    string
	ImagePath          string
	UnitPrice          *float64
	UnrestrictedStock  *float64
	Min                *float64
	Max                *float64
	InTransit          *float64
	Extra              RawRecord
}

// Record returns the canonical wire shape of the piece. String fields are
// included only when non-empty, numeric fields only when non-null, and the
// holder-name array is always present. Canonical keys win over Extra.
func (p Piece) Record() RawRecord {
	rec := RawRecord{}
	for k, v := range p.Extra {
		rec[k] = v
	}
	putString := func(key, val string) {
		if val != "" {
			rec[key] = val
		} else {
			delete(rec, key)
		}
	}
	putNumber := func(key string, val *float64) {
		if val != nil {
			rec[key] = *val
		} else {
			delete(rec, key)
		}
	}
	putString(FieldID, p.ID)
	putString(FieldAPN, p.APN)
	putString(FieldSPN, p.SPN)
	putString(FieldConnecteurDPN, p.ConnecteurDPN)
	putString(FieldPartsHolder, p.PartsHolder)
	putString(FieldSerialNumberHolder, p.SerialNumberHolder)
	putString(FieldEquipment, p.Equipment)
	putString(FieldSection, p.Section)
	putString(FieldProjectLine, p.ProjectLine)
	putString(FieldDescription, p.Description)
	putString(FieldStorageLocation, p.StorageLocation)
	putString(FieldMRPType, p.MRPType)
	putString(FieldSuppliers, p.Suppliers)
	putString(FieldMoreInformation, p.MoreInformation)
	putString(FieldImagePath, p.ImagePath)
	putNumber(FieldUnitPrice, p.UnitPrice)
	putNumber(FieldUnrestrictedStock, p.UnrestrictedStock)
	putNumber(FieldMin, p.Min)
	putNumber(FieldMax, p.Max)
	putNumber(FieldInTransit, p.InTransit)
	holders := p.HolderName
	if holders == nil {
		holders = []string{}
	}
	rec[FieldHolderName] = holders
	return rec
}

// Fields returns the remote document payload for the piece: the canonical
// record without the identity key.
func (p Piece) Fields() RawRecord {
	rec := p.Record()
	delete(rec, FieldID)
	return rec
}

// PieceFromRecord builds a typed Piece from a canonical-keyed record. The
// record is expected to have passed through normalization; value coercion is
// tolerant so that validated-but-unvalidated legacy data still loads.
func PieceFromRecord(rec RawRecord) Piece {
	p := Piece{Extra: RawRecord{}}
	for key, val := range rec {
		switch key {
		case FieldID:
			p.ID = CoerceString(val)
		case FieldAPN:
			p.APN = CoerceString(val)
		case FieldSPN:
			p.SPN = CoerceString(val)
		case FieldConnecteurDPN:
			p.ConnecteurDPN = CoerceString(val)
		case FieldPartsHolder:
			p.PartsHolder = CoerceString(val)
		case FieldSerialNumberHolder:
			p.SerialNumberHolder = CoerceString(val)
		case FieldEquipment:
			p.Equipment = CoerceString(val)
		case FieldSection:
			p.Section = CoerceString(val)
		case FieldProjectLine:
			p.ProjectLine = CoerceString(val)
		case FieldDescription:
			p.Description = CoerceString(val)
		case FieldStorageLocation:
			p.StorageLocation = CoerceString(val)
		case FieldMRPType:
			p.MRPType = CoerceString(val)
		case FieldSuppliers:
			p.Suppliers = CoerceString(val)
		case FieldMoreInformation:
			p.MoreInformation = CoerceString(val)
		case FieldImagePath:
			p.ImagePath = CoerceString(val)
		case FieldUnitPrice:
			p.UnitPrice = CoerceNumber(val)
		case FieldUnrestrictedStock:
			p.UnrestrictedStock = CoerceNumber(val)
		case FieldMin:
			p.Min = CoerceNumber(val)
		case FieldMax:
			p.Max = CoerceNumber(val)
		case FieldInTransit:
			p.InTransit = CoerceNumber(val)
		case FieldHolderName:
			p.HolderName = CoerceStringSlice(val)
		default:
			p.Extra[key] = val
		}
	}
	if p.HolderName == nil {
		p.HolderName = []string{}
	}
	return p
}

// MarshalJSON renders the piece in its canonical wire shape.
func (p Piece) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record())
}

// UnmarshalJSON accepts the canonical wire shape, including legacy documents
// carrying synonym keys in Extra.
func (p *Piece) UnmarshalJSON(data []byte) error {
	var rec RawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*p = PieceFromRecord(rec)
	return nil
}

// CoerceString renders a raw value as a string. Nil becomes the empty
// string; numbers keep their shortest representation.
func CoerceString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// CoerceNumber extracts a float value when the raw value carries one,
// including numeric strings. Everything else, "N/A" and blanks included,
// yields nil.
func CoerceNumber(val any) *float64 {
	switch v := val.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || strings.EqualFold(trimmed, "N/A") {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// CoerceStringSlice renders a raw value as a string sequence. Strings split
// on commas with blank elements dropped; anything that is not a sequence or
// a string becomes an empty sequence.
func CoerceStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(CoerceString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		out := []string{}
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
