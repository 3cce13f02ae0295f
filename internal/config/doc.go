// Package config loads calpal settings from defaults, an optional YAML file
// and CALPAL_* environment variables.
//
// Nested keys map to environment variables by upper-casing and replacing dots
// with underscores, so scheduling.max_results is read from
// CALPAL_SCHEDULING_MAX_RESULTS. CalDAV accounts can only be declared in the
// file:
//
//	caldav:
//	  alice:
//	    endpoint: https://caldav.example.com/
//	    username: alice
//	    password: secret
package config
