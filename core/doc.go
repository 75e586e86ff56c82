// Package core contains the shared contracts, configuration surface, and
// error taxonomy for the 1Sub client. The transport and resource packages
// depend on core; core must not depend on them.
package core
