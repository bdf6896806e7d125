package discord

import (
	"strings"
)

// Custom ids route component and modal interactions back to their handler:
// "<scope>:<key>:<action>". The key is a session id or a form id; form ids
// contain a colon themselves, so the action is always the last segment.
const (
	scopeForm    = "form"
	scopeBuilder = "builder"
	scopeGrants  = "perms"

	actionStart  = "start"
	actionSubmit = "submit"

	actionShort     = "short"
	actionParagraph = "paragraph"
	actionChoice    = "choice"
	actionRemove    = "remove"
	actionFinish    = "finish"

	actionEveryone = "everyone"
	actionUsers    = "users"
	actionRoles    = "roles"
)

func customID(scope, key, action string) string {
	return scope + ":" + key + ":" + action
}

func parseCustomID(id string) (scope, key, action string, ok bool) {
	scope, rest, found := strings.Cut(id, ":")
	if !found {
		return "", "", "", false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", "", false
	}
	return scope, rest[:idx], rest[idx+1:], true
}
