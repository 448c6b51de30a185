package rpcapi

import "encoding/base64"

// MaxAudioSize is the largest recording a CreateIdea request may carry.
const MaxAudioSize = 50 << 20

// MaxMessageSize bounds messages in both directions. The JSON codec sends
// CreateIdeaRequest.Audio base64 encoded, so the bound follows the encoded
// length of a full-size recording plus room for the other fields.
var MaxMessageSize = base64.StdEncoding.EncodedLen(MaxAudioSize) + 1<<20
