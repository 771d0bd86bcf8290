package dto

type CreateRaceRequest struct {
	ID       string `json:"id"`
	Round    uint64 `json:"round"`
	Duration int64  `json:"duration"` // segundos
}

type FinishRaceRequest struct {
	Winner uint8  `json:"winner"`
	Seed   uint64 `json:"seed"`
}

type PlaceBetRequest struct {
	Outcome uint8  `json:"outcome"` // corredor
	Amount  uint64 `json:"amount"`  // unidades base
}
