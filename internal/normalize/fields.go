package normalize

import "piececore/pkg/domain"

// canonicalOrder fixes the priority of canonical fields when building lookup
// tables, so collisions between stripped synonym forms resolve the same way
// on every run.
var canonicalOrder = []string{
	domain.FieldAPN,
	domain.FieldSPN,
	domain.FieldHolderName,
	domain.FieldConnecteurDPN,
	domain.FieldPartsHolder,
	domain.FieldSerialNumberHolder,
	domain.FieldEquipment,
	domain.FieldSection,
	domain.FieldProjectLine,
	domain.FieldDescription,
	domain.FieldStorageLocation,
	domain.FieldMRPType,
	domain.FieldSuppliers,
	domain.FieldUnitPrice,
	domain.FieldUnrestrictedStock,
	domain.FieldMin,
	domain.FieldMax,
	domain.FieldInTransit,
	domain.FieldMoreInformation,
	domain.FieldImagePath,
}

// synonyms maps each canonical field to the cleaned key variants observed in
// spreadsheet exports, legacy local blobs, and remote documents. The first
// entry is always the canonical field's own cleaned name.
var synonyms = map[string][]string{
	domain.FieldAPN: {"apn", "article", "reference", "id", "code", "part", "item", "product"},
	domain.FieldSPN: {"spn", "supplier.part", "vendor.part", "supplier.code", "vendor.code"},
	domain.FieldHolderName: {"holder name", "holdername", "holder", "owner", "responsible"},
	domain.FieldConnecteurDPN: {"connecteur dpn", "connecteurdpn", "connecteur", "connector", "connection", "dpn"},
	domain.FieldPartsHolder: {"parts holder", "partname", "part name", "component"},
	domain.FieldSerialNumberHolder: {"serial number holder", "serialnumberholder", "serial.number.holder", "serial.number", "serial"},
	domain.FieldEquipment: {"equipment", "machine", "device", "tool", "instrument", "apparatus", "system"},
	domain.FieldSection:   {"section", "department", "area", "division", "group", "team", "category"},
	domain.FieldProjectLine: {"project line", "projectline", "project.line", "line", "project", "production.line"},
	domain.FieldDescription: {"description", "desc", "details", "comment", "remark", "note"},
	domain.FieldStorageLocation: {"storage location", "storagelocation", "storage.location", "storage", "location", "warehouse"},
	domain.FieldMRPType: {"mrp type", "mrptype", "mrp.type", "mrp", "type", "material.type", "planning.type"},
	domain.FieldSuppliers: {"suppliers", "supplier", "vendor", "provider", "manufacturer", "maker", "producer"},
	domain.FieldUnitPrice: {"unit price", "unitprice", "unit.price", "price", "cost", "unit.cost", "price.per.unit"},
	domain.FieldUnrestrictedStock: {"unrestricted stock", "unrestrictedstock", "unrestricted.stock", "stock", "quantity", "inventory", "available", "qté", "qty", "quantité"},
	domain.FieldMin: {"min", "minimum", "min.qty", "min.quantity", "minimum.stock", "min.stock"},
	domain.FieldMax: {"max", "maximum", "max.qty", "max.quantity", "maximum.stock", "max.stock"},
	domain.FieldInTransit: {"in transit", "intransit", "in.transit", "transit", "shipping", "on.the.way", "en.route"},
	domain.FieldMoreInformation: {"more information", "moreinformation", "more.information", "notes", "information", "info", "more info"},
	domain.FieldImagePath: {"imagepath", "picture", "image", "path"},
}

// cleanedLookup maps cleaned keys to canonical fields; strippedLookup maps
// the same keys with all non-alphanumerics removed, used as a second chance
// before giving up on an unrecognized key.
var (
	cleanedLookup  = map[string]string{}
	strippedLookup = map[string]string{}
)

func init() {
	for _, canonical := range canonicalOrder {
		for _, syn := range synonyms[canonical] {
			if _, ok := cleanedLookup[syn]; !ok {
				cleanedLookup[syn] = canonical
			}
			stripped := stripKey(syn)
			if stripped == "" {
				continue
			}
			if _, ok := strippedLookup[stripped]; !ok {
				strippedLookup[stripped] = canonical
			}
		}
	}
}

// Synonyms returns the cleaned variants recognized for a canonical field.
func Synonyms(canonical string) []string {
	out := make([]string, len(synonyms[canonical]))
	copy(out, synonyms[canonical])
	return out
}

// CanonicalFields returns the canonical field names in priority order.
func CanonicalFields() []string {
	out := make([]string, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}
