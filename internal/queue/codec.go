package queue

import (
	"fmt"
	"strings"
)

// IDPrefix marks every entry id.
const IDPrefix = "distrq-"

const escapedSeparator = "--"

// EncodeID turns a path fragment relative to a queue root into an entry id.
// An empty fragment yields no id.
//
// The escape is not self-delimiting: a fragment that already contains "--"
// decodes to a different fragment. Stored ids depend on this exact form.
func EncodeID(fragment string) (string, bool) {
	if fragment == "" {
		return "", false
	}
	return IDPrefix + strings.ReplaceAll(fragment, "/", escapedSeparator), true
}

// DecodeID returns the path fragment of an entry id, or false for anything
// that is not an entry id.
func DecodeID(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, IDPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, escapedSeparator, "/"), true
}

func pathFromID(rootPath, id string) (string, bool) {
	fragment, ok := DecodeID(id)
	if !ok {
		return "", false
	}
	return rootPath + "/" + fragment, true
}

// idFromPath panics when path is not below rootPath: callers only pass
// paths they obtained by walking rootPath.
func idFromPath(rootPath, path string) string {
	fragment, ok := strings.CutPrefix(path, rootPath+"/")
	if !ok {
		panic(fmt.Sprintf("queue: path %q is not below root %q", path, rootPath))
	}
	id, ok := EncodeID(fragment)
	if !ok {
		panic(fmt.Sprintf("queue: path %q has no fragment below root %q", path, rootPath))
	}
	return id
}
