package ir

// EnvelopeVersion is the version stamped into every persisted record envelope.
const EnvelopeVersion = 1
