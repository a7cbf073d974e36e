package salesforce

import "github.com/samber/mo"

// Record is one raw row returned by a query. Nested relationship rows are
// Records (or map[string]any) themselves; sub-query results are objects with
// a "records" array.
type Record map[string]any

// Type returns the sObject type from the record's attributes, if present
func (r Record) Type() string {
	attrs, ok := r["attributes"].(map[string]any)
	if !ok {
		return ""
	}
	t, _ := attrs["type"].(string)
	return t
}

// AuthResponse represents the OAuth token response
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	Signature   string `json:"signature"`
	Scope       string `json:"scope"`
	InstanceURL string `json:"instance_url,omitempty"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// QueryResult is one page of a SOQL query
type QueryResult struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
	Records        []Record `json:"records"`
}

// DescribeSObjectResult is the subset of the describe response used for mapping
type DescribeSObjectResult struct {
	Name   string  `json:"name"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`

	ChildRelationships []ChildRelationship `json:"childRelationships"`
}

// ChildRelationship names a one-to-many relationship usable in a sub-query
type ChildRelationship struct {
	ChildSObject     string `json:"childSObject"`
	Field            string `json:"field"`
	RelationshipName string `json:"relationshipName"`
}

type Field struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	RelationshipName string   `json:"relationshipName,omitempty"`
	ReferenceTo      []string `json:"referenceTo,omitempty"`
	Createable       bool     `json:"createable"`
	Updateable       bool     `json:"updateable"`
	Nillable         bool     `json:"nillable"`
}

// GetField looks a field up by API name
func (d *DescribeSObjectResult) GetField(name string) mo.Option[Field] {
	for _, f := range d.Fields {
		if f.Name == name {
			return mo.Some(f)
		}
	}
	return mo.None[Field]()
}

// GetRelationship looks a reference field up by its relationship name
func (d *DescribeSObjectResult) GetRelationship(name string) mo.Option[Field] {
	for _, f := range d.Fields {
		if f.RelationshipName != "" && f.RelationshipName == name {
			return mo.Some(f)
		}
	}
	return mo.None[Field]()
}

// GetChildRelationship looks a child relationship up by name
func (d *DescribeSObjectResult) GetChildRelationship(name string) mo.Option[ChildRelationship] {
	for _, c := range d.ChildRelationships {
		if c.RelationshipName != "" && c.RelationshipName == name {
			return mo.Some(c)
		}
	}
	return mo.None[ChildRelationship]()
}

func (d *DescribeSObjectResult) CreateableFields() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Createable {
			out = append(out, f)
		}
	}
	return out
}

func (d *DescribeSObjectResult) UpdateableFields() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Updateable {
			out = append(out, f)
		}
	}
	return out
}
