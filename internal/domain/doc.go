// Package domain contains the core warehouse entities, value objects, and
// domain logic of the application: requisitions and their lines, worker
// assignments and their lines, scheduler suggestions, and the scan log.
// It represents the heart of the system, independent of any specific
// infrastructure or delivery mechanism.
package domain
