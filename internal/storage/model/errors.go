package model

import "errors"

// ErrNotFound é o sentinela compartilhado pelos drivers de storage.
// O pacote storage o re-exporta para os serviços.
var ErrNotFound = errors.New("not found")
