// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package driver

// defaultConfig is the built-in driver set. A configuration file
// loaded later layers over these entries, so deployments only have to
// declare what differs.
const defaultConfig = `
[common]
maxWait = 15.0
discoverPrompt = true
rediscoverPrompt = false
checkIfOutputComplete = false
waitBeforeClearingBuffer = 0.1
sshCommand = 'ssh -p ${device.port} ${device.username}@${device.name}'
telnetCommand = 'telnet ${device.name} ${device.port}'

[common.events.username-event]
pattern = '(?:[Uu]sername|[Ll]ogin): ?'
action = 'sendUsername'
beginState = ['GROUND', 'USERNAME_SENT']
endState = 'USERNAME_SENT'

[common.events.password-event]
pattern = '[Pp]assword: ?'
action = 'sendPassword'
beginState = ['GROUND', 'USERNAME_SENT', 'PASSWORD_SENT']
endState = 'PASSWORD_SENT'

[common.events.permission-denied-event]
pattern = 'Permission denied|Login incorrect|Authentication failed'
action = 'permissionDenied'
beginState = ['GROUND', 'USERNAME_SENT', 'PASSWORD_SENT']

[common.events.connection-refused-event]
pattern = '(?:Connection refused|Unable to connect to remote host)'
action = 'connectionRefused'
beginState = ['GROUND']

[common.events.hostkey-confirm-event]
pattern = 'Are you sure you want to continue connecting'
action = ':sendLine:yes:'
beginState = ['GROUND']

[common.transitions.prompt-match]
beginState = ['GROUND', 'USERNAME_SENT', 'PASSWORD_SENT']
endState = 'USER_PROMPT'

[linux]
parent = 'common'

[linux.events.command-error-event]
pattern = '(?:command not found|syntax error near unexpected token)'
action = 'commandError'
beginState = ['USER_PROMPT', 'USER2_PROMPT']

[linux.transitions.su]
beginState = ['USER_PROMPT']
endState = 'SU_PASSWORD_WAIT'

[linux.events.su-password-event]
pattern = '[Pp]assword: ?'
action = 'sendPassword'
beginState = ['SU_PASSWORD_WAIT']
endState = 'SU_PASSWORD_SENT'

[linux.transitions.prompt-match]
beginState = ['SU_PASSWORD_SENT']
endState = 'USER2_PROMPT'

[ciscoios]
parent = 'common'

[ciscoios.events.more-event]
pattern = ' ?-+ ?[Mm]ore ?-+ ?'
action = 'sendSpace'

[ciscoios.events.command-error-event]
pattern = '% (?:Invalid input detected|Incomplete command|Unknown command|Ambiguous command)'
action = 'commandError'
beginState = ['USER_PROMPT', 'ENABLE_PROMPT', 'CONFIG_PROMPT']

[ciscoios.transitions.enable]
beginState = ['USER_PROMPT']
endState = 'ENABLE_PASSWORD_WAIT'

[ciscoios.events.enable-password-event]
pattern = '[Pp]assword: ?'
action = 'sendPassword'
beginState = ['ENABLE_PASSWORD_WAIT']
endState = 'ENABLE_PASSWORD_SENT'

[ciscoios.transitions.prompt-match]
beginState = ['ENABLE_PASSWORD_SENT']
endState = 'ENABLE_PROMPT'

[ciscoios.transitions."configure terminal"]
beginState = ['ENABLE_PROMPT']
endState = 'CONFIG_PROMPT'

[ciscoios.transitions.end]
beginState = ['CONFIG_PROMPT']
endState = 'ENABLE_PROMPT'
`

func init() {
	if err := LoadBytes([]byte(defaultConfig)); err != nil {
		panic("invalid built-in driver configuration: " + err.Error())
	}
}
