package exthashmap

// NoRecordFound - Custom error to inform that no record was found
type NoRecordFound struct {
	msg string
}

// Error - Used to notify that no record was found
func (E NoRecordFound) Error() string {
	if E.msg == "" {
		return "no record found"
	}
	return E.msg
}

// Is - Makes errors.Is match any NoRecordFound regardless of message
func (E NoRecordFound) Is(target error) bool {
	_, ok := target.(NoRecordFound)
	return ok
}

// DuplicateKey - Custom error to inform that a key is already present and duplicates are rejected
type DuplicateKey struct {
	msg string
}

// Error - Used to notify that the key already exists
func (E DuplicateKey) Error() string {
	if E.msg == "" {
		return "duplicate key"
	}
	return E.msg
}

// Is - Makes errors.Is match any DuplicateKey regardless of message
func (E DuplicateKey) Is(target error) bool {
	_, ok := target.(DuplicateKey)
	return ok
}

// DigestExhausted - Custom error to inform that a full bucket can not be split any further, either because all
// its entries share one digest or because every digest bit is already in use
type DigestExhausted struct {
	msg string
}

// Error - Used to notify that splitting can not make room
func (E DigestExhausted) Error() string {
	if E.msg == "" {
		return "digest exhausted"
	}
	return E.msg
}

// Is - Makes errors.Is match any DigestExhausted regardless of message
func (E DigestExhausted) Is(target error) bool {
	_, ok := target.(DigestExhausted)
	return ok
}

// PersistenceFailure - Custom error to inform that the page store failed. The in memory state is left as it was
// before the failing operation.
type PersistenceFailure struct {
	msg string
	err error
}

// Error - Used to notify that the page store failed
func (P PersistenceFailure) Error() string {
	msg := P.msg
	if msg == "" {
		msg = "persistence failure"
	}
	if P.err != nil {
		return msg + ": " + P.err.Error()
	}
	return msg
}

// Unwrap - Returns the page store error causing the failure
func (P PersistenceFailure) Unwrap() error {
	return P.err
}

// Is - Makes errors.Is match any PersistenceFailure regardless of message and cause
func (P PersistenceFailure) Is(target error) bool {
	_, ok := target.(PersistenceFailure)
	return ok
}

// ConcurrentModification - Custom error to inform that the hash map changed while being iterated
type ConcurrentModification struct {
	msg string
}

// Error - Used to notify that an iterator is no longer valid
func (C ConcurrentModification) Error() string {
	if C.msg == "" {
		return "hash map modified during iteration"
	}
	return C.msg
}

// Is - Makes errors.Is match any ConcurrentModification regardless of message
func (C ConcurrentModification) Is(target error) bool {
	_, ok := target.(ConcurrentModification)
	return ok
}
