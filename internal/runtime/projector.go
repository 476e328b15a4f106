package runtime

// Unquote strips exactly one leading and one trailing character from payload,
// which turns a JSON-quoted scalar like "\"hello\"" into "hello".
// It does not parse JSON. Payloads shorter than two characters are returned
// unchanged with ok set to false.
func Unquote(payload string) (s string, ok bool) {
	if len(payload) < 2 {
		return payload, false
	}
	return payload[1 : len(payload)-1], true
}
