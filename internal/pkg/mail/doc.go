// Package mail sends plain-text email. Callers depend on Mail; SMTP is the
// only provider.
package mail
