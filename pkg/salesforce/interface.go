package salesforce

import "context"

// SalesforceClient defines the interface for Salesforce API operations
type SalesforceClient interface {
	// Authenticate retrieves an OAuth access token
	Authenticate(ctx context.Context) (*AuthResponse, error)

	// Query runs a SOQL query and returns its first page
	Query(ctx context.Context, soql string) (*QueryResult, error)

	// QueryMore fetches the page behind a nextRecordsUrl
	QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResult, error)

	// QueryIterator runs a SOQL query and returns a cursor over all pages
	QueryIterator(ctx context.Context, soql string) (*RecordIterator, error)

	// DescribeSObject retrieves the field metadata of an sObject type
	DescribeSObject(ctx context.Context, name string) (*DescribeSObjectResult, error)
}

var _ SalesforceClient = (*Salesforce)(nil)
