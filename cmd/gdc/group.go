package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Inspect user groups",
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <group-id>",
	Short: "List the members of a user group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		groupID := args[0]
		client := newClient()

		declarative, err := client.DeclarativeUsers(ctx)
		if err != nil {
			fatal("%v", err)
		}
		users, err := client.ListUsers(ctx)
		if err != nil {
			fatal("%v", err)
		}
		byID := make(map[string]catalog.User, len(users))
		for _, user := range users {
			byID[user.ID] = user
		}

		members := []catalog.User{}
		for _, du := range declarative {
			if !slices.Contains(du.GroupIDs, groupID) {
				continue
			}
			if user, ok := byID[du.ID]; ok {
				members = append(members, user)
			} else {
				members = append(members, catalog.User{ID: du.ID})
			}
		}

		if flagJSON {
			printJSON(members)
			return
		}
		printHeading(fmt.Sprintf("Members of %s (%d)", groupID, len(members)))
		for _, member := range members {
			printUser(member)
		}
	},
}

func init() {
	groupCmd.AddCommand(groupMembersCmd)
	rootCmd.AddCommand(groupCmd)
}
