package mapper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/natserract/sfmapper/internal/model"
	"github.com/natserract/sfmapper/pkg/mapper"
	"github.com/natserract/sfmapper/pkg/salesforce"
)

func newMapper(t *testing.T, client mapper.Client) *mapper.Mapper {
	t.Helper()
	m := mapper.New(client, zap.NewNop())
	require.NoError(t, model.Register(m))
	return m
}

func TestMapToDomainObject(t *testing.T) {
	m := newMapper(t, nil)

	record := salesforce.Record{
		"attributes":        map[string]any{"type": "Account", "url": "/services/data/v61.0/sobjects/Account/001A"},
		"Id":                "001A",
		"Name":              "Acme",
		"Industry":          "Energy",
		"NumberOfEmployees": float64(250),
		"AnnualRevenue":     "1500000.5",
		"Owner": map[string]any{
			"attributes": map[string]any{"type": "User"},
			"Id":         "005A",
			"Name":       "Ada",
			"Email":      "ada@example.com",
		},
		"Contacts": map[string]any{
			"totalSize": float64(2),
			"done":      true,
			"records": []any{
				map[string]any{"Id": "003A", "LastName": "Lovelace"},
				map[string]any{"Id": "003B", "LastName": "Hopper"},
			},
		},
		"CreatedDate":      "2024-01-15T10:30:00.000+0000",
		"lastmodifieddate": "2024-02-01T08:00:00Z",
	}

	obj, err := m.MapToDomainObject(record, "Account")
	require.NoError(t, err)

	account, ok := obj.(*model.Account)
	require.True(t, ok)
	assert.Equal(t, "001A", account.ID)
	assert.Equal(t, "Acme", account.Name)
	assert.Equal(t, "Energy", account.Industry)
	assert.Equal(t, 250, account.NumberOfEmployees)
	assert.Equal(t, 1500000.5, account.AnnualRevenue)
	require.NotNil(t, account.Owner)
	assert.Equal(t, model.User{ID: "005A", Name: "Ada", Email: "ada@example.com"}, *account.Owner)
	require.Len(t, account.Contacts, 2)
	assert.Equal(t, "Hopper", account.Contacts[1].LastName)
	assert.True(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Equal(account.CreatedDate))
	assert.True(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC).Equal(account.LastModifiedDate))
}

func TestMapToDomainObjectNullsAndStrings(t *testing.T) {
	m := newMapper(t, nil)

	obj, err := m.MapToDomainObject(salesforce.Record{
		"Id":           "00TA",
		"Subject":      "Call",
		"ActivityDate": nil,
	}, "Task")
	require.NoError(t, err)
	assert.Nil(t, obj.(*model.Task).ActivityDate)

	obj, err = m.MapToDomainObject(salesforce.Record{"ActivityDate": "2024-03-01"}, "Task")
	require.NoError(t, err)
	require.NotNil(t, obj.(*model.Task).ActivityDate)
	assert.Equal(t, "2024-03-01", obj.(*model.Task).ActivityDate.Format(time.DateOnly))

	// values as the SOAP API returns them
	obj, err = m.MapToDomainObject(salesforce.Record{
		"Id":        "02ZA",
		"IsPrimary": "true",
		"Role":      "Decision Maker",
		"Contact":   salesforce.Record{"Id": "003A", "LastName": "Lovelace"},
	}, "AccountContactRole")
	require.NoError(t, err)
	role := obj.(*model.AccountContactRole)
	assert.True(t, role.IsPrimary)
	assert.Nil(t, role.Account)
	assert.Equal(t, "Lovelace", role.Contact.LastName)
}

func TestMapToDomainObjectReturnsNewObjects(t *testing.T) {
	m := newMapper(t, nil)
	record := salesforce.Record{"Id": "001A", "Name": "Acme"}

	a, err := m.MapToDomainObject(record, "Account")
	require.NoError(t, err)
	b, err := m.MapToDomainObject(record, "Account")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
}

func TestMapToDomainObjectErrors(t *testing.T) {
	m := newMapper(t, nil)

	_, err := m.MapToDomainObject(salesforce.Record{}, "Opportunity")
	assert.ErrorIs(t, err, mapper.ErrUnknownModel)

	_, err = m.MapToDomainObject(salesforce.Record{"NumberOfEmployees": "many"}, "Account")
	var fieldErr *mapper.FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "Account", fieldErr.Model)
	assert.Equal(t, "NumberOfEmployees", fieldErr.Field)

	_, err = m.MapToDomainObject(salesforce.Record{"Owner": "005A"}, "Account")
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "Owner", fieldErr.Field)

	_, err = m.MapToDomainObject(salesforce.Record{"NumberOfEmployees": 1.5}, "Account")
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "NumberOfEmployees", fieldErr.Field)

	_, err = m.MapToDomainObject(salesforce.Record{
		"Contacts": map[string]any{"records": []any{map[string]any{"Id": "003A", "Account": "001A"}}},
	}, "Account")
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "Contacts", fieldErr.Field)

	_, err = m.MapToDomainObject(salesforce.Record{"CreatedDate": "yesterday"}, "Account")
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "CreatedDate", fieldErr.Field)
}

func TestMapToDomainObjectKeyMatching(t *testing.T) {
	m := newMapper(t, nil)

	for i := 0; i < 20; i++ {
		obj, err := m.MapToDomainObject(salesforce.Record{
			"name":     "lower",
			"NAME":     "upper",
			"industry": "Retail",
			"Industry": "Energy",
		}, "Account")
		require.NoError(t, err)

		account := obj.(*model.Account)
		assert.Equal(t, "upper", account.Name)
		assert.Equal(t, "Energy", account.Industry)
	}
}

func TestMapToDomainObjectSubQueries(t *testing.T) {
	m := newMapper(t, nil)

	obj, err := m.MapToDomainObject(salesforce.Record{
		"Id":       "001A",
		"Contacts": []salesforce.Record{{"Id": "003A"}, {"Id": "003B"}},
	}, "Account")
	require.NoError(t, err)
	assert.Equal(t, []model.Contact{{ID: "003A"}, {ID: "003B"}}, obj.(*model.Account).Contacts)

	obj, err = m.MapToDomainObject(salesforce.Record{
		"Id":       "001A",
		"Contacts": map[string]any{"totalSize": float64(0), "done": true, "records": nil},
	}, "Account")
	require.NoError(t, err)
	assert.Nil(t, obj.(*model.Account).Contacts)
}

type lead struct {
	ID        string            `salesforce:"Id"`
	Interests []string          `salesforce:"Interests__c"`
	Rating    *int              `salesforce:"Rating__c"`
	Extra     map[string]any    `salesforce:"Extra__c"`
	Raw       any               `salesforce:"Raw__c"`
	Ignored   string            `salesforce:"-"`
	Labels    map[string]string `salesforce:"-"`
	Company   string
	private   string
}

func TestMapToDomainObjectFieldKinds(t *testing.T) {
	m := mapper.New(nil, nil)
	require.NoError(t, m.Register("Lead", &lead{}))
	assert.Equal(t, []string{"Lead"}, m.Models())

	obj, err := m.MapToDomainObject(salesforce.Record{
		"Id":           "00QA",
		"Interests__c": "Golf;Sailing",
		"Rating__c":    "3.0",
		"Extra__c":     map[string]any{"a": "b"},
		"Raw__c":       []any{"x"},
		"Ignored":      "nope",
		"Company":      "Acme",
		"private":      "nope",
	}, "Lead")
	require.NoError(t, err)

	l := obj.(*lead)
	assert.Equal(t, []string{"Golf", "Sailing"}, l.Interests)
	require.NotNil(t, l.Rating)
	assert.Equal(t, 3, *l.Rating)
	assert.Equal(t, map[string]any{"a": "b"}, l.Extra)
	assert.Equal(t, []any{"x"}, l.Raw)
	assert.Empty(t, l.Ignored)
	assert.Equal(t, "Acme", l.Company)
	assert.Empty(t, l.private)
}

func TestRegisterRejectsNonStructs(t *testing.T) {
	m := mapper.New(nil, nil)
	assert.ErrorIs(t, m.Register("Account", "Account"), mapper.ErrInvalidModel)
	assert.ErrorIs(t, m.Register("Account", nil), mapper.ErrInvalidModel)
	assert.ErrorIs(t, m.Register("Account", time.Time{}), mapper.ErrInvalidModel)
}
