// Package fallback holds the fixed guidance shown when the responder cannot be reached.
package fallback

// FirstContactScript is shown when the very first exchange of a session fails.
// A user's first message is the one most likely to describe an active emergency,
// so it carries the full first-aid procedure instead of an error.
const FirstContactScript = `Move them away from the snake. Remove any tight items like rings or bracelets. Keep them calm and still.
Keep their leg still and straight. Don't tie anything around it or try to cut or suck the bite.
If transport is far, make a stretcher using a tarp, rope, or jackets. Get them to a health facility ASAP.
If they feel dizzy or vomit, lay them on their left side. Watch their breathing and be ready to help if needed.`

// ConnectivityNotice is shown once the session has already received a real answer.
const ConnectivityNotice = "I'm having trouble connecting right now. Please try again in a moment."

// For returns the content to display in place of a failed reply.
func For(hasReceivedFirstReply bool) string {
	if hasReceivedFirstReply {
		return ConnectivityNotice
	}
	return FirstContactScript
}
