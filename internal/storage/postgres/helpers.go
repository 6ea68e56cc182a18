package postgres

import "encoding/json"

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// jsonEncode serializa colunas JSONB (tags, steps, corpos de mensagem).
func jsonEncode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func jsonDecode(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
