// Package model holds the domain objects the sfexport tool maps records into.
package model

import (
	"time"

	"github.com/natserract/sfmapper/pkg/mapper"
)

type User struct {
	ID    string `salesforce:"Id"`
	Name  string `salesforce:"Name"`
	Email string `salesforce:"Email"`
}

type Account struct {
	ID                string    `salesforce:"Id"`
	Name              string    `salesforce:"Name"`
	Industry          string    `salesforce:"Industry"`
	NumberOfEmployees int       `salesforce:"NumberOfEmployees"`
	AnnualRevenue     float64   `salesforce:"AnnualRevenue"`
	Owner             *User     `salesforce:"Owner"`
	Contacts          []Contact `salesforce:"Contacts"`
	CreatedDate       time.Time `salesforce:"CreatedDate"`
	LastModifiedDate  time.Time `salesforce:"LastModifiedDate"`
}

type Contact struct {
	ID        string   `salesforce:"Id"`
	FirstName string   `salesforce:"FirstName"`
	LastName  string   `salesforce:"LastName"`
	Email     string   `salesforce:"Email"`
	AccountID string   `salesforce:"AccountId"`
	Account   *Account `salesforce:"Account"`
}

type Task struct {
	ID           string     `salesforce:"Id"`
	Subject      string     `salesforce:"Subject"`
	Status       string     `salesforce:"Status"`
	ActivityDate *time.Time `salesforce:"ActivityDate"`
	WhatID       string     `salesforce:"WhatId"`
}

type AccountContactRole struct {
	ID        string   `salesforce:"Id"`
	AccountID string   `salesforce:"AccountId"`
	ContactID string   `salesforce:"ContactId"`
	Role      string   `salesforce:"Role"`
	IsPrimary bool     `salesforce:"IsPrimary"`
	Account   *Account `salesforce:"Account"`
	Contact   *Contact `salesforce:"Contact"`
}

func (a *Account) SalesforceID() string            { return a.ID }
func (c *Contact) SalesforceID() string            { return c.ID }
func (t *Task) SalesforceID() string               { return t.ID }
func (r *AccountContactRole) SalesforceID() string { return r.ID }
func (u *User) SalesforceID() string               { return u.ID }

// Register binds every model of this package to its sObject name
func Register(m *mapper.Mapper) error {
	for object, prototype := range map[string]any{
		"User":               User{},
		"Account":            Account{},
		"Contact":            Contact{},
		"Task":               Task{},
		"AccountContactRole": AccountContactRole{},
	} {
		if err := m.Register(object, prototype); err != nil {
			return err
		}
	}
	return nil
}
