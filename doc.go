// Package east tracks which migrations have been applied to a store and
// applies or reverts them in order.
//
// Migrations are named <epoch-millis>_<label>, so sorting names sorts them by
// creation time. A Resolver compares the names found by an Adapter with the
// names recorded in its ledger, and a Runner executes the resulting list one
// unit at a time, recording each unit before starting the next. A failed run
// leaves the completed prefix recorded, so running it again only picks up
// the remainder.
package east
