package importer

import "fmt"

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "bool"
)

// Field is one mappable target field of an import dictionary.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// One importer serves every bulk flow; the target picks the dictionary.
const (
	TargetClients = "clients"
	TargetClaims  = "claims"
)

var clientFields = []Field{
	{Key: "name", Label: "Client Name", Type: FieldString, Required: true},
	{Key: "legalName", Label: "Legal Name", Type: FieldString},
	{Key: "email", Label: "Primary Contact Email", Type: FieldString, Required: true},
	{Key: "phone", Label: "Primary Phone", Type: FieldString},
	{Key: "ehrSystem", Label: "EHR System", Type: FieldString},
	{Key: "specialty", Label: "Specialty", Type: FieldString},
	{Key: "taxId", Label: "Tax ID", Type: FieldString},
	{Key: "npi", Label: "NPI", Type: FieldString},
	{Key: "creditLimit", Label: "Credit Limit", Type: FieldNumber},
}

var claimFields = []Field{
	{Key: "patientName", Label: "Patient Name", Type: FieldString, Required: true},
	{Key: "clientId", Label: "Client ID", Type: FieldString, Required: true},
	{Key: "payer", Label: "Payer", Type: FieldString},
	{Key: "amount", Label: "Amount", Type: FieldNumber, Required: true},
	{Key: "serviceDate", Label: "Service Date", Type: FieldDate},
	{Key: "status", Label: "Status", Type: FieldString},
}

// Dictionary returns the field dictionary for an import target.
func Dictionary(target string) ([]Field, error) {
	switch target {
	case TargetClients:
		return clientFields, nil
	case TargetClaims:
		return claimFields, nil
	default:
		return nil, fmt.Errorf("unknown import target: %s", target)
	}
}
