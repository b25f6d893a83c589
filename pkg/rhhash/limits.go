package rhhash

// Hardcoded implementation limit on table capacity.
//
// This exists to keep slotIndex arithmetic (hashing, probing, chain walks)
// safely inside the range a platform int can represent without overflow,
// and to keep a misconfigured, absurdly large capacity from attempting an
// allocation the caller almost certainly didn't intend. It is a guardrail,
// not an estimate of available memory; see New's doc comment.
const maxCapacity = 1 << 31
