// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package engine

// Policy governs how long an observer stays registered.
type Policy int

const (
	// Once notifies the observer on the next terminal entry, then removes it.
	Once Policy = iota
	// Always notifies the observer on every terminal entry and persists.
	Always
)

// Observer receives the terminal outcome of a validation run: exactly one
// of documents or err is set, matching spec.md §3's ValidatedDocuments
// alternative. Cancellation (the user declining a passphrase) notifies with
// both arguments nil.
type Observer func(documents *ValidatedDocuments, err error)

type observerEntry struct {
	policy   Policy
	callback Observer
}

// registry is the engine-local observer list (spec.md §9: a global,
// process-wide list is a defect; each engine owns its own).
type registry struct {
	entries []observerEntry
}

// attach adds an observer. If the engine is already terminal, it is
// notified synchronously right here and, for Once, never added to the
// list at all (spec.md §4.5, §8 property 5).
func (reg *registry) attach(policy Policy, cb Observer, terminalDocs *ValidatedDocuments, terminalErr error, isTerminal bool) {
	if isTerminal {
		cb(terminalDocs, terminalErr)
		if policy == Once {
			return
		}
	}
	reg.entries = append(reg.entries, observerEntry{policy: policy, callback: cb})
}

// notify invokes every registered observer, in registration order, then
// prunes the Once entries that just fired.
func (reg *registry) notify(documents *ValidatedDocuments, err error) {
	for _, e := range reg.entries {
		e.callback(documents, err)
	}
	kept := reg.entries[:0]
	for _, e := range reg.entries {
		if e.policy == Always {
			kept = append(kept, e)
		}
	}
	reg.entries = kept
}
