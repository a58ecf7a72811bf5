// Package formspec loads YAML form definitions and turns them into
// controller configuration.
//
// A definition lists fields in display order:
//
//	name: signup
//	validateOnChange: false
//	pollInterval: 200ms
//	schema:
//	  file: api.yaml
//	  operation: createAccount
//	fields:
//	  - key: plan
//	    type: radio
//	    initial: basic
//	    options:
//	      - {id: plan-basic, value: basic, label: Basic}
//	      - {id: plan-pro, value: pro, label: Pro}
//	  - key: company
//	    disableIf: plan != pro
//	    validate:
//	      - required
//	      - minLength: 2
//	      - {pattern: '^[A-Z]', message: must start with a capital}
//
// When a schema is referenced, properties of the operation's request body
// that are not declared become fields, and declared fields inherit their
// type, default and schema checks.
package formspec
