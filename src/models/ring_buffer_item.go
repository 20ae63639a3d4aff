package models

// RingBuffer indices and constants
const (
	RB_IDX_TIMESTAMP = 0
	RB_IDX_PRICE     = 1
	RB_IDX_VOLUME    = 2
	RB_IDX_PRICE_PCT = 3
	RB_IDX_VOL_PCT   = 4
	RB_NUM_FEATURES  = 5
)
