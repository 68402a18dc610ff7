// Package validator checks `validate` struct tags on usecase inputs and
// module dependencies. Failures come back as a field to message map that
// the router renders under "error".
package validator
