package registry

import "fmt"

// FieldSpec describes one required field of a submission kind.
type FieldSpec struct {
	Name        string
	Label       string
	Description string
	// Question is the deterministic prompt used when no generator is available.
	Question  string
	Numeric   bool
	Validator Validator
}

func (f FieldSpec) Validate(raw any) (any, error) {
	if f.Validator == nil {
		return NonEmpty(raw)
	}
	return f.Validator(raw)
}

// Pointer returns the JSON pointer of the field inside a record document.
func (f FieldSpec) Pointer() string {
	return "/" + f.Name
}

var fieldTable = map[Kind][]FieldSpec{
	BirthCertificate: {
		{Name: "full_name", Label: "Full Name", Description: "Full name of the person", Question: "What is the full name of the person on the birth certificate?", Validator: NonEmpty},
		{Name: "date_of_birth", Label: "Date Of Birth", Description: "Date of birth (YYYY-MM-DD)", Question: "What is the date of birth (YYYY-MM-DD)?", Validator: Date},
		{Name: "place_of_birth", Label: "Place Of Birth", Description: "Place of birth", Question: "Where was the person born?", Validator: NonEmpty},
		{Name: "fathers_name", Label: "Fathers Name", Description: "Father's name", Question: "What is the father's name?", Validator: NonEmpty},
		{Name: "mothers_name", Label: "Mothers Name", Description: "Mother's name", Question: "What is the mother's name?", Validator: NonEmpty},
	},
	DeathCertificate: {
		{Name: "name", Label: "Name", Description: "Name of the deceased", Question: "What is the name of the deceased?", Validator: NonEmpty},
		{Name: "date_of_death", Label: "Date Of Death", Description: "Date of death (YYYY-MM-DD)", Question: "What is the date of death (YYYY-MM-DD)?", Validator: Date},
		{Name: "place_of_death", Label: "Place Of Death", Description: "Place of death", Question: "Where did the death occur?", Validator: NonEmpty},
		{Name: "cause_of_death", Label: "Cause Of Death", Description: "Cause of death", Question: "What was the cause of death?", Validator: NonEmpty},
	},
	LandCertificate: {
		{Name: "property_address", Label: "Property Address", Description: "Address of the property", Question: "What is the address of the property?", Validator: NonEmpty},
		{Name: "owner_name", Label: "Owner Name", Description: "Name of the property owner", Question: "What is the name of the property owner?", Validator: NonEmpty},
		{Name: "survey_number", Label: "Survey Number", Description: "Survey number of the property", Question: "What is the survey number of the property?", Validator: NonEmpty},
		{Name: "area_sqft", Label: "Area Sqft", Description: "Area in square feet", Question: "What is the area of the property in square feet?", Numeric: true, Validator: PositiveNumber},
		{Name: "market_value", Label: "Market Value", Description: "Market value of the property", Question: "What is the market value of the property?", Numeric: true, Validator: PositiveNumber},
	},
	IncomeCertificate: {
		{Name: "name", Label: "Name", Description: "Name of the person", Question: "What is the name of the applicant?", Validator: NonEmpty},
		{Name: "annual_income", Label: "Annual Income", Description: "Annual income amount", Question: "What is the annual income?", Numeric: true, Validator: PositiveNumber},
		{Name: "source_of_income", Label: "Source Of Income", Description: "Source of income", Question: "What is the source of income?", Validator: NonEmpty},
		{Name: "address", Label: "Address", Description: "Residential address", Question: "What is the residential address?", Validator: NonEmpty},
	},
	Complaint: {
		{Name: "short_description", Label: "Short Description", Description: "Short description of the issue", Question: "Could you give a short description of the issue?", Validator: NonEmpty},
		{Name: "detail_1", Label: "Detail 1", Description: "First follow-up detail about the issue", Question: "When did you first notice this issue?", Validator: NonEmpty},
		{Name: "detail_2", Label: "Detail 2", Description: "Second follow-up detail about the issue", Question: "Have you tried any solutions to resolve this? If yes, what were they?", Validator: NonEmpty},
		{Name: "detail_3", Label: "Detail 3", Description: "Any additional information", Question: "Is there any additional information you'd like to share?", Validator: NonEmpty},
		{Name: "name", Label: "Name", Description: "Full name of the complainant", Question: "What is your full name?", Validator: NonEmpty},
		{Name: "phone", Label: "Phone", Description: "Contact phone number", Question: "What is your phone number?", Validator: Phone},
	},
}

// Fields returns the ordered field list of kind. It panics for kinds outside the
// closed set; callers only pass kinds resolved through Lookup or Detect.
func Fields(kind Kind) []FieldSpec {
	fields, ok := fieldTable[kind]
	if !ok {
		panic(fmt.Sprintf("registry: %v: %q", ErrUnknownKind, string(kind)))
	}
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return out
}

// Field finds a field of kind by name.
func Field(kind Kind, name string) (FieldSpec, bool) {
	for _, f := range fieldTable[kind] {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the ordered field names of kind.
func FieldNames(kind Kind) []string {
	fields := fieldTable[kind]
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}
