// Package votingsession implements the assembly voting service inside the
// governance context.
//
// The module owns the voting-session lifecycle (open, describe, sweep to
// closed), vote admission with exactly-once-per-voter semantics delegated to
// the storage uniqueness constraint, and ledger tallying. Business rules live
// in application/domain layers; infrastructure stays behind ports and
// adapters.
package votingsession
