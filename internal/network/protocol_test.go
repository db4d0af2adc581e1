package network

import (
	"encoding/json"
	"testing"
)

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		payload string
		wantErr bool
	}{
		{"claim ok", MsgTypeClaimHex, `{"q":3,"r":-2.5}`, false},
		{"claim missing r", MsgTypeClaimHex, `{"q":3}`, true},
		{"claim string coord", MsgTypeClaimHex, `{"q":"3","r":1}`, true},
		{"move ok", MsgTypeMoveUnit, `{"unit_id":"u1","q":0,"r":1}`, false},
		{"move empty unit", MsgTypeMoveUnit, `{"unit_id":"","q":0,"r":1}`, true},
		{"build missing unit", MsgTypeBuildStructure, `{"q":0,"r":1}`, true},
		{"chat ok", MsgTypeChat, `{"message":"hi"}`, false},
		{"chat empty", MsgTypeChat, `{"message":""}`, true},
		{"join empty payload", MsgTypeJoin, ``, false},
		{"ping unchecked", MsgTypePing, `garbage`, false},
		{"malformed json", MsgTypeClaimHex, `{"q":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.typ, json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePayload(%s, %s) = %v, wantErr %v", tt.typ, tt.payload, err, tt.wantErr)
			}
		})
	}
}

func TestServerMessageEncoding(t *testing.T) {
	inv := 40
	msg := ServerMessage{
		Type: MsgTypeStateDelta,
		Payload: StateDeltaPayload{
			Tick:  7,
			Units: []UnitView{{ID: "u1", Owner: "alice", Inventory: &inv}},
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			Tick  int64            `json:"tick"`
			Units []map[string]any `json:"units"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "state_delta" || decoded.Payload.Tick != 7 {
		t.Fatalf("decoded = %+v", decoded)
	}
	u := decoded.Payload.Units[0]
	if u["inventory"] != float64(40) {
		t.Fatalf("inventory missing: %v", u)
	}
	if _, ok := u["path"]; ok {
		t.Fatalf("empty path serialized: %v", u)
	}
}
