package dialogs

import "strings"

// PathResolver rewrites a shorthand alias prefix into a canonical
// scope-qualified path. Resolvers are pure: a path with no matching alias
// passes through unchanged, and a fully canonical path is a fixed point.
type PathResolver interface {
	TransformPath(path string) string
}

// AliasPathResolver rewrites a leading alias into prefix + rest + postfix.
// Aliases are only significant at the start of the path.
type AliasPathResolver struct {
	alias   string
	prefix  string
	postfix string
}

func NewAliasPathResolver(alias, prefix, postfix string) *AliasPathResolver {
	return &AliasPathResolver{alias: alias, prefix: prefix, postfix: postfix}
}

func (r *AliasPathResolver) TransformPath(path string) string {
	if strings.HasPrefix(path, r.alias) && len(path) > len(r.alias) {
		return r.prefix + path[len(r.alias):] + r.postfix
	}
	return path
}

// DollarPathResolver maps $prop to dialog.prop.
type DollarPathResolver struct{ AliasPathResolver }

func NewDollarPathResolver() *DollarPathResolver {
	return &DollarPathResolver{AliasPathResolver{alias: "$", prefix: "dialog."}}
}

// HashPathResolver maps #intent to turn.recognized.intents.intent.
type HashPathResolver struct{ AliasPathResolver }

func NewHashPathResolver() *HashPathResolver {
	return &HashPathResolver{AliasPathResolver{alias: "#", prefix: "turn.recognized.intents."}}
}

// PercentPathResolver maps %prop to class.prop.
type PercentPathResolver struct{ AliasPathResolver }

func NewPercentPathResolver() *PercentPathResolver {
	return &PercentPathResolver{AliasPathResolver{alias: "%", prefix: "class."}}
}

// AtAtPathResolver maps @@entity to turn.recognized.entities.entity. It must
// be registered before AtPathResolver so the longer alias wins.
type AtAtPathResolver struct{ AliasPathResolver }

func NewAtAtPathResolver() *AtAtPathResolver {
	return &AtAtPathResolver{AliasPathResolver{alias: "@@", prefix: "turn.recognized.entities."}}
}

// AtPathResolver maps @entity to turn.recognized.entities.entity.first().
// Only the first path segment names the entity; the first() accessor is
// injected before any trailing suffix, so @city.code becomes
// turn.recognized.entities.city.first().code.
type AtPathResolver struct{}

func NewAtPathResolver() *AtPathResolver {
	return &AtPathResolver{}
}

func (r *AtPathResolver) TransformPath(path string) string {
	if !strings.HasPrefix(path, "@") || strings.HasPrefix(path, "@@") || len(path) < 2 {
		return path
	}

	end := strings.IndexAny(path, ".[")
	if end < 0 {
		end = len(path)
	}
	property := path[1:end]
	suffix := path[end:]
	return "turn.recognized.entities." + property + ".first()" + suffix
}

// DefaultPathResolvers returns the built-in alias resolvers in evaluation
// order. @@ precedes @ so the longer alias is tried first.
func DefaultPathResolvers() []PathResolver {
	return []PathResolver{
		NewDollarPathResolver(),
		NewHashPathResolver(),
		NewAtAtPathResolver(),
		NewAtPathResolver(),
		NewPercentPathResolver(),
	}
}
