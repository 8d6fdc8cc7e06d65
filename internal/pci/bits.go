package pci

import "strings"

// flagDef binds one register bit to its display token. Token order within
// each table is part of the output contract; downstream parsers rely on it.
type flagDef struct {
	mask uint16
	name string
}

var commandFlags = []flagDef{
	{CommandIO, "I/O"},
	{CommandMemory, "Mem"},
	{CommandMaster, "BusMaster"},
	{CommandSpecial, "SpecCycle"},
	{CommandInvalidate, "MemWINV"},
	{CommandVGASnoop, "VGASnoop"},
	{CommandParity, "ParErr"},
	{CommandWait, "Stepping"},
	{CommandSERR, "SERR"},
	{CommandFastBack, "FastB2B"},
	{CommandDisableINTx, "DisINTx"},
}

var statusHeadFlags = []flagDef{
	{StatusCapList, "Cap"},
	{Status66MHz, "66MHz"},
	{StatusUDF, "UDF"},
	{StatusFastBack, "FastB2B"},
	{StatusParity, "ParErr"},
}

var statusTailFlags = []flagDef{
	{StatusSigTargetAbort, ">TAbort"},
	{StatusRecTargetAbort, "<TAbort"},
	{StatusRecMasterAbort, "<MAbort"},
	{StatusSigSystemError, ">SERR"},
	{StatusDetectedParity, "<PERR"},
	{StatusINTx, "INTx"},
}

var secStatusHeadFlags = []flagDef{
	{Status66MHz, "66MHz"},
	{StatusFastBack, "FastB2B"},
	{StatusParity, "ParErr"},
}

var secStatusTailFlags = []flagDef{
	{StatusSigTargetAbort, ">TAbort"},
	{StatusRecTargetAbort, "<TAbort"},
	{StatusRecMasterAbort, "<MAbort"},
	{StatusSigSystemError, "<SERR"},
	{StatusDetectedParity, "<PERR"},
}

var bridgeCtlFlags = []flagDef{
	{BridgeCtlParity, "Parity"},
	{BridgeCtlSERR, "SERR"},
	{BridgeCtlNoISA, "NoISA"},
	{BridgeCtlVGA, "VGA"},
	{BridgeCtlVGA16, "VGA16"},
	{BridgeCtlMAbort, "MAbort"},
	{BridgeCtlBusReset, ">Reset"},
	{BridgeCtlFastBack, "FastB2B"},
	{BridgeCtlPriDiscTmr, "PriDiscTmr"},
	{BridgeCtlSecDiscTmr, "SecDiscTmr"},
	{BridgeCtlDiscTmrStat, "DiscTmrStat"},
	{BridgeCtlDiscTmrSERR, "DiscTmrSERREn"},
}

var cardBusCtlFlags = []flagDef{
	{CBCtlParity, "Parity"},
	{CBCtlSERR, "SERR"},
	{CBCtlISA, "ISA"},
	{CBCtlVGA, "VGA"},
	{CBCtlMAbort, "MAbort"},
	{CBCtlReset, ">Reset"},
	{CBCtl16BitInt, "16bInt"},
	{CBCtlPostWrite, "PostWrite"},
}

var devselNames = [4]string{"fast", "medium", "slow", "??"}

func expandFlags(val uint16, defs []flagDef) string {
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		sign := "-"
		if val&d.mask != 0 {
			sign = "+"
		}
		parts = append(parts, d.name+sign)
	}
	return strings.Join(parts, " ")
}

// ControlString expands the command register into the fixed token list.
func ControlString(cmd uint16) string {
	return expandFlags(cmd, commandFlags)
}

// DevselString maps status bits 10-9 to the DEVSEL timing name.
func DevselString(status uint16) string {
	return devselNames[(status&StatusDevselMask)>>StatusDevselShift]
}

// StatusString expands the status register, including the DEVSEL field.
func StatusString(status uint16) string {
	return expandFlags(status, statusHeadFlags) +
		" DEVSEL=" + DevselString(status) + " " +
		expandFlags(status, statusTailFlags)
}

// SecStatusString expands a bridge secondary status register.
func SecStatusString(status uint16) string {
	return expandFlags(status, secStatusHeadFlags) +
		" DEVSEL=" + DevselString(status) + " " +
		expandFlags(status, secStatusTailFlags)
}

// BridgeCtlString expands the type 1 bridge control register.
func BridgeCtlString(ctl uint16) string {
	return expandFlags(ctl, bridgeCtlFlags)
}

// CardBusCtlString expands the type 2 (CardBus) bridge control register.
func CardBusCtlString(ctl uint16) string {
	return expandFlags(ctl, cardBusCtlFlags)
}
