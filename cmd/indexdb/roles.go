package main

import (
	"strings"

	"github.com/cuemby/indexdb/internal/schema"
)

var roleNames = map[string]schema.Roles{
	"declaration":       schema.RoleDeclaration,
	"definition":        schema.RoleDefinition,
	"reference":         schema.RoleReference,
	"read":              schema.RoleRead,
	"write":             schema.RoleWrite,
	"call":              schema.RoleCall,
	"dynamic":           schema.RoleDynamic,
	"addressof":         schema.RoleAddressOf,
	"implicit":          schema.RoleImplicit,
	"canonical":         schema.RoleCanonical,
	"unittest":          schema.RoleUnitTest,
	"childof":           schema.RelationChildOf,
	"baseof":            schema.RelationBaseOf,
	"overrideof":        schema.RelationOverrideOf,
	"receivedby":        schema.RelationReceivedBy,
	"calledby":          schema.RelationCalledBy,
	"extendedby":        schema.RelationExtendedBy,
	"accessorof":        schema.RelationAccessorOf,
	"containedby":       schema.RelationContainedBy,
}

// parseRoles turns a comma-separated list of role names into a mask;
// an empty string yields zero, which LookupProvidersForUSR treats as
// "match everything" (§4.3).
func parseRoles(csv string) schema.Roles {
	var mask schema.Roles
	for _, name := range strings.Split(csv, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		mask |= roleNames[name]
	}
	return mask
}

var symbolKindNames = map[string]schema.GlobalSymbolKind{
	"class":                 schema.KindClass,
	"struct":                schema.KindStruct,
	"protocol":              schema.KindProtocol,
	"function":              schema.KindFunction,
	"globalvar":             schema.KindGlobalVar,
	"typealias":             schema.KindTypeAlias,
	"enum":                  schema.KindEnum,
	"union":                 schema.KindUnion,
	"testclassorextension":  schema.KindTestClassOrExtension,
	"testmethod":            schema.KindTestMethod,
	"commenttag":            schema.KindCommentTag,
}

func decodeSymbolKind(s string) schema.GlobalSymbolKind {
	return symbolKindNames[strings.ToLower(s)]
}

func parseSymbolKind(s string) schema.GlobalSymbolKind {
	return decodeSymbolKind(s)
}
