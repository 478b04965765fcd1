package channelmap

import "errors"

var (
	ErrOpeningMapFile   = errors.New("failed to open channel map file")
	ErrReadingMapFile   = errors.New("failed to read channel map file")
	ErrMalformedMapLine = errors.New("malformed channel map line")
)
