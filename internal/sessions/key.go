// Package sessions keeps per-farmer conversation threads.
//
// Thread keys are derived from the WhatsApp sender ID:
//
//	919876543210@c.us -> whatsapp_919876543210
//
// The same sender always maps to the same thread, so follow-up
// questions carry the context of earlier turns.
package sessions

import "strings"

// ThreadKey derives the deterministic conversation thread key for a
// WhatsApp sender ID. The phone number is the part before the "@"; a
// sender ID without an "@" is used whole.
func ThreadKey(senderID string) string {
	phone := senderID
	if idx := strings.Index(senderID, "@"); idx != -1 {
		phone = senderID[:idx]
	}
	return "whatsapp_" + phone
}
