package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// RaceID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`    // subscribe | unsubscribe | ping
	RaceID string `json:"race_id"` // requerido em subscribe/unsubscribe
}

// Assinantes de AllRaces recebem as notificações de todas as corridas.
const AllRaces = "*"
