// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "magickbuild-cli/cmd/magickbuild"
)

func main() {
	cmd.Execute()
}
