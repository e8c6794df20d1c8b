package root

import (
	"github.com/atlasdesk/atlasdesk/apps/cli/cmd/bootstrap"
	"github.com/atlasdesk/atlasdesk/apps/cli/cmd/indexes"
	"github.com/atlasdesk/atlasdesk/apps/cli/cmd/recovery"
	"github.com/atlasdesk/atlasdesk/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenant.Command())
	Root().AddCommand(indexes.Command())
	Root().AddCommand(recovery.Command())
}
