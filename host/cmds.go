// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

// A command describes one debugger command. It is stored as the Data of
// the matching node in the command tree.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	handler     func(h *Host, c selection) error
	group       *commandGroup // non-nil for subtrees
}

// A commandGroup lists the commands of one tree for the help display.
type commandGroup struct {
	title    string
	commands []*command
}

// A selection is a command chosen from the command tree along with its
// arguments.
type selection struct {
	Command *command
	Args    []string
}

var (
	cmds   *cmd.Tree
	groups = make(map[*cmd.Tree]*commandGroup)
)

func newGroup(t *cmd.Tree, title string) *commandGroup {
	g := &commandGroup{title: title}
	groups[t] = g
	return g
}

func addCommand(t *cmd.Tree, c *command) {
	t.AddCommand(cmd.CommandDescriptor{
		Name:        c.name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	})
	groups[t].commands = append(groups[t].commands, c)
}

func addSubtree(t *cmd.Tree, name, brief string) *cmd.Tree {
	sub := t.AddSubtree(cmd.TreeDescriptor{Name: name, Brief: brief})
	g := newGroup(sub, brief)
	groups[t].commands = append(groups[t].commands, &command{name: name, brief: brief, group: g})
	return sub
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "chip8"})
	newGroup(root, "chip8")

	addCommand(root, &command{
		name:        "help",
		description: "Display help for a command.",
		usage:       "help [<command>]",
		handler:     (*Host).cmdHelp,
	})
	addCommand(root, &command{
		name:  "annotate",
		brief: "Annotate an address",
		description: "Provide a code annotation at a memory address." +
			" When disassembling code at this address, the annotation will" +
			" be displayed. Omit the string to remove the annotation.",
		usage:   "annotate <address> [<string>]",
		handler: (*Host).cmdAnnotate,
	})
	addCommand(root, &command{
		name:  "assemble",
		brief: "Assemble a file from disk",
		description: "Run the assembler on the specified file, producing" +
			" a ROM image (.ch8) and a source map file (.map) if successful." +
			" If you want verbose output, specify true as a second parameter.",
		usage:   "assemble <filename> [<verbose>]",
		handler: (*Host).cmdAssemble,
	})

	// Breakpoint commands
	bp := addSubtree(root, "breakpoint", "Breakpoint commands")
	addCommand(bp, &command{
		name:        "list",
		brief:       "List breakpoints",
		description: "List all current breakpoints.",
		usage:       "breakpoint list",
		handler:     (*Host).cmdBreakpointList,
	})
	addCommand(bp, &command{
		name:  "add",
		brief: "Add a breakpoint",
		description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		usage:   "breakpoint add <address>",
		handler: (*Host).cmdBreakpointAdd,
	})
	addCommand(bp, &command{
		name:        "remove",
		brief:       "Remove a breakpoint",
		description: "Remove a breakpoint at the specified address.",
		usage:       "breakpoint remove <address>",
		handler:     (*Host).cmdBreakpointRemove,
	})
	addCommand(bp, &command{
		name:        "enable",
		brief:       "Enable a breakpoint",
		description: "Enable a previously added breakpoint.",
		usage:       "breakpoint enable <address>",
		handler:     (*Host).cmdBreakpointEnable,
	})
	addCommand(bp, &command{
		name:  "disable",
		brief: "Disable a breakpoint",
		description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		usage:   "breakpoint disable <address>",
		handler: (*Host).cmdBreakpointDisable,
	})

	// Data breakpoint commands
	db := addSubtree(root, "databreakpoint", "Data breakpoint commands")
	addCommand(db, &command{
		name:        "list",
		brief:       "List data breakpoints",
		description: "List all current data breakpoints.",
		usage:       "databreakpoint list",
		handler:     (*Host).cmdDataBreakpointList,
	})
	addCommand(db, &command{
		name:  "add",
		brief: "Add a data breakpoint",
		description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU stores data at this address, the" +
			" breakpoint will stop the CPU. Optionally, a byte" +
			" value may be specified, and the CPU will stop only" +
			" when this value is stored. The data breakpoint starts" +
			" enabled.",
		usage:   "databreakpoint add <address> [<value>]",
		handler: (*Host).cmdDataBreakpointAdd,
	})
	addCommand(db, &command{
		name:  "remove",
		brief: "Remove a data breakpoint",
		description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		usage:   "databreakpoint remove <address>",
		handler: (*Host).cmdDataBreakpointRemove,
	})
	addCommand(db, &command{
		name:        "enable",
		brief:       "Enable a data breakpoint",
		description: "Enable a previously added data breakpoint.",
		usage:       "databreakpoint enable <address>",
		handler:     (*Host).cmdDataBreakpointEnable,
	})
	addCommand(db, &command{
		name:        "disable",
		brief:       "Disable a data breakpoint",
		description: "Disable a previously added data breakpoint.",
		usage:       "databreakpoint disable <address>",
		handler:     (*Host).cmdDataBreakpointDisable,
	})

	addCommand(root, &command{
		name:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		usage:   "disassemble [<address>] [<lines>]",
		handler: (*Host).cmdDisassemble,
	})
	addCommand(root, &command{
		name:  "display",
		brief: "Display the framebuffer",
		description: "Draw the contents of the 64x32 framebuffer as text," +
			" one character per pixel.",
		usage:   "display",
		handler: (*Host).cmdDisplay,
	})
	addCommand(root, &command{
		name:        "evaluate",
		brief:       "Evaluate an expression",
		description: "Evaluate a mathematical expression.",
		usage:       "evaluate <expression>",
		handler:     (*Host).cmdEvaluate,
	})
	addCommand(root, &command{
		name:  "execute",
		brief: "Execute a debugger script file",
		description: "Load a script file from disk and execute the" +
			" debugger commands it contains.",
		usage:   "execute <filename>",
		handler: (*Host).cmdExecute,
	})
	addCommand(root, &command{
		name:  "exports",
		brief: "List exported addresses",
		description: "Display a list of all memory addresses exported by" +
			" the loaded ROM. Exported addresses are stored in the ROM's" +
			" associated source map file.",
		usage:   "exports",
		handler: (*Host).cmdExports,
	})

	// Key commands
	ky := addSubtree(root, "key", "Keypad commands")
	addCommand(ky, &command{
		name:  "press",
		brief: "Press a key",
		description: "Press one or more keys on the 16-key keypad. Keys" +
			" are hexadecimal digits 0-F and stay pressed until released.",
		usage:   "key press <key> [<key> ...]",
		handler: (*Host).cmdKeyPress,
	})
	addCommand(ky, &command{
		name:  "release",
		brief: "Release a key",
		description: "Release one or more keys on the keypad. Without" +
			" arguments, all keys are released.",
		usage:   "key release [<key> ...]",
		handler: (*Host).cmdKeyRelease,
	})
	addCommand(ky, &command{
		name:        "list",
		brief:       "List pressed keys",
		description: "List the keys currently pressed on the keypad.",
		usage:       "key list",
		handler:     (*Host).cmdKeyList,
	})

	addCommand(root, &command{
		name:  "list",
		brief: "List source code lines",
		description: "List the source code corresponding to the machine code" +
			" at the specified address. A source map containing the address must" +
			" have been previously loaded.",
		usage:   "list [<address>] [<lines>]",
		handler: (*Host).cmdList,
	})
	addCommand(root, &command{
		name:  "load",
		brief: "Load a ROM file",
		description: "Load a CHIP-8 ROM image into memory at $200 and reset" +
			" the CPU. If the file has an associated source map, it" +
			" will be loaded too.",
		usage:   "load <filename>",
		handler: (*Host).cmdLoad,
	})

	// Memory commands
	me := addSubtree(root, "memory", "Memory commands")
	addCommand(me, &command{
		name:  "dump",
		brief: "Dump memory at address",
		description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		usage:   "memory dump [<address>] [<bytes>]",
		handler: (*Host).cmdMemoryDump,
	})
	addCommand(me, &command{
		name:  "set",
		brief: "Set memory at address",
		description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values. You may use an expression for each" +
			" byte value.",
		usage:   "memory set <address> <byte> [<byte> ...]",
		handler: (*Host).cmdMemorySet,
	})
	addCommand(me, &command{
		name:  "copy",
		brief: "Copy memory",
		description: "Copy memory from one range of addresses to another. You" +
			" must specify the destination address, the first byte of the source" +
			" address, and the last byte of the source address.",
		usage:   "memory copy <dst addr> <src addr begin> <src addr end>",
		handler: (*Host).cmdMemoryCopy,
	})

	addCommand(root, &command{
		name:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		handler:     (*Host).cmdQuit,
	})
	addCommand(root, &command{
		name:  "register",
		brief: "View or change register values",
		description: "When used without arguments, this command displays the" +
			" current contents of the CPU registers, the call stack and the" +
			" keypad. When used with arguments, this command changes the value" +
			" of a register. Allowed register names include V0 through VF, I," +
			" PC, SP, DT and ST.",
		usage:   "register [<name> <value>]",
		handler: (*Host).cmdRegister,
	})
	addCommand(root, &command{
		name:  "reset",
		brief: "Reset the CPU",
		description: "Reset the CPU registers, framebuffer and keypad to" +
			" their power-on state. Memory is left untouched. A halted CPU" +
			" can run again after a reset.",
		usage:   "reset",
		handler: (*Host).cmdReset,
	})
	addCommand(root, &command{
		name:  "run",
		brief: "Run the CPU",
		description: "Run the CPU until a breakpoint is hit, the CPU faults," +
			" the program waits for a key, or the user types Ctrl-C." +
			" Optionally, an address to start running from may be given.",
		usage:   "run [<address>]",
		handler: (*Host).cmdRun,
	})
	addCommand(root, &command{
		name:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		usage:   "set [<var> <value>]",
		handler: (*Host).cmdSet,
	})

	// Step commands
	st := addSubtree(root, "step", "Step the debugger")
	addCommand(st, &command{
		name:  "in",
		brief: "Step into next instruction",
		description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		usage:   "step in [<count>]",
		handler: (*Host).cmdStepIn,
	})
	addCommand(st, &command{
		name:  "over",
		brief: "Step over next instruction",
		description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step over the subroutine." +
			" The number of steps may be specified as an option.",
		usage:   "step over [<count>]",
		handler: (*Host).cmdStepOver,
	})
	addCommand(st, &command{
		name:  "out",
		brief: "Step out of the current subroutine",
		description: "Step the CPU until it executes a RET instruction" +
			" that returns from the currently running subroutine.",
		usage:   "step out",
		handler: (*Host).cmdStepOut,
	})

	// Add command shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("bp", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("db", "databreakpoint")
	root.AddShortcut("dbp", "databreakpoint")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("k", "key press")
	root.AddShortcut("kr", "key release")
	root.AddShortcut("l", "list")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("mc", "memory copy")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "register")
	root.AddShortcut("s", "step over")
	root.AddShortcut("si", "step in")
	root.AddShortcut("so", "step out")
	root.AddShortcut("x", "display")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "register")

	cmds = root
}
