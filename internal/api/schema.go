package api

import (
	"fmt"
	"sort"
	"strings"
)

// OperationKind separates read operations from writes
type OperationKind string

const (
	KindQuery    OperationKind = "Query"
	KindMutation OperationKind = "Mutation"
)

// Arg is one declared operation argument. Type uses GraphQL notation.
type Arg struct {
	Name string
	Type string
}

// Required reports whether the argument type is non-null
func (a Arg) Required() bool {
	return strings.HasSuffix(a.Type, "!")
}

// Operation is one entry of the API contract
type Operation struct {
	Name    string
	Kind    OperationKind
	Args    []Arg
	Returns string
}

// Contract is the complete, statically declared API surface. The server
// refuses to start unless its dispatch table matches it exactly.
var Contract = []Operation{
	{Name: "getGroup", Kind: KindQuery, Args: []Arg{{"slug", "String!"}}, Returns: "Group"},
	{Name: "getLoginCode", Kind: KindQuery, Args: []Arg{{"code", "String!"}}, Returns: "LoginCode"},
	{Name: "getCurrentUser", Kind: KindQuery, Returns: "User"},

	{Name: "createGroup", Kind: KindMutation, Args: []Arg{{"creator", "UserInput!"}, {"invitees", "[UserInput]!"}, {"name", "String"}}, Returns: "Group"},
	{Name: "setGroupName", Kind: KindMutation, Args: []Arg{{"name", "String!"}, {"slug", "String"}}, Returns: "Group"},
	{Name: "createLoginCode", Kind: KindMutation, Args: []Arg{{"email", "String!"}, {"name", "String"}}, Returns: "Boolean"},
	{Name: "verifyLoginCode", Kind: KindMutation, Args: []Arg{{"code", "String!"}}, Returns: "Session"},
	{Name: "acceptInvite", Kind: KindMutation, Args: []Arg{{"slug", "String!"}}, Returns: "Group"},
	{Name: "setMatchDate", Kind: KindMutation, Args: []Arg{{"slug", "String!"}, {"matchDate", "Date"}}, Returns: "Group"},
}

// typeDefinitions lists the node shapes in declaration order. Relations resolve
// one level deep, so nested nodes are the Summary types.
var typeDefinitions = []string{
	"scalar Date",
	`type Group {
  id: ID!
  slug: String!
  name: String!
  users: [UserSummary]!
  creator: UserSummary
  options: GroupOptions!
}`,
	`type GroupSummary {
  id: ID!
  slug: String!
  name: String!
  options: GroupOptions!
}`,
	`type GroupOptions {
  matchDate: Date
}`,
	`type User {
  id: ID!
  name: String!
  email: String!
  groups: [GroupSummary]!
  invites: [Invite]!
}`,
	`type UserSummary {
  id: ID!
  name: String!
  email: String!
}`,
	`type Invite {
  id: ID!
  user: UserSummary
  group: GroupSummary
}`,
	`type LoginCode {
  code: String!
  user: UserSummary
  exp: Date!
}`,
	`type Session {
  token: String!
  expiresAt: Date!
  user: User!
}`,
	`input UserInput {
  name: String!
  email: String!
}`,
}

// lookupOperation finds a contract entry by name
func lookupOperation(name string) (Operation, bool) {
	for _, op := range Contract {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// SDL renders the contract as a GraphQL schema document for external hosts
func SDL() string {
	var b strings.Builder
	for _, def := range typeDefinitions {
		b.WriteString(def)
		b.WriteString("\n\n")
	}
	for _, kind := range []OperationKind{KindQuery, KindMutation} {
		fmt.Fprintf(&b, "type %s {\n", kind)
		for _, op := range Contract {
			if op.Kind != kind {
				continue
			}
			b.WriteString("  " + op.Name)
			if len(op.Args) > 0 {
				args := make([]string, len(op.Args))
				for i, a := range op.Args {
					args[i] = a.Name + ": " + a.Type
				}
				b.WriteString("(" + strings.Join(args, ", ") + ")")
			}
			b.WriteString(": " + op.Returns + "\n")
		}
		b.WriteString("}\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// validateDispatch checks that handlers and the contract name the same operations
func validateDispatch(handlers map[string]handlerFunc) error {
	var missing, extra []string
	declared := make(map[string]bool, len(Contract))
	for _, op := range Contract {
		if declared[op.Name] {
			return fmt.Errorf("operation %s declared twice", op.Name)
		}
		declared[op.Name] = true
		if _, ok := handlers[op.Name]; !ok {
			missing = append(missing, op.Name)
		}
	}
	for name := range handlers {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("dispatch table does not match contract: missing=%v undeclared=%v", missing, extra)
	}
	return nil
}
