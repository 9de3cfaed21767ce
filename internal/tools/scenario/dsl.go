// Package scenario loads Lua scripts that drive a game step by step and
// checks the resulting state against the expectations they declare.
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const gameTypeName = "scenario_game"

// Scenario is a named, ordered list of steps recorded by a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one recorded DSL call.
type Step struct {
	Kind string
	Args map[string]any
	// Line is the script line that recorded the step, zero when unknown.
	Line int
}

// LoadScenarioFromFile runs the script at path and returns the Game it
// builds. The script must return the value created with Game.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Game")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Game")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, gameTypeName)
	state.NewTable()
	lua.SetFunctions(state, gameMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, gameConstructor, 0)
	state.SetGlobal("Game")
}

var gameConstructor = []lua.RegistryFunction{
	{Name: "new", Function: gameNew},
}

var gameMethods = []lua.RegistryFunction{
	{Name: "deal", Function: gameDeal},
	{Name: "bid", Function: gameBid},
	{Name: "play", Function: gamePlay},
	{Name: "pass", Function: gamePass},
	{Name: "assign_landlord", Function: gameAssignLandlord},
	{Name: "expect_phase", Function: gameExpectPhase},
	{Name: "expect_turn", Function: gameExpectTurn},
	{Name: "expect_landlord", Function: gameExpectLandlord},
	{Name: "expect_winner", Function: gameExpectWinner},
	{Name: "expect_hand_size", Function: gameExpectHandSize},
	{Name: "expect_passes", Function: gameExpectPasses},
	{Name: "expect_incumbent", Function: gameExpectIncumbent},
	{Name: "expect_seq", Function: gameExpectSeq},
	{Name: "expect_rejected", Function: gameExpectRejected},
}

func gameNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, gameTypeName)
	return 1
}

// gameDeal accepts either {seed = n} or explicit hands and bottom. Hands and
// the bottom may be written as tables of codes or as space-separated strings.
func gameDeal(state *lua.State) int {
	scenario := checkGame(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(state, scenario, "deal", tableToMap(state, 2))
	return chain(state)
}

func gameBid(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	value := lua.CheckInteger(state, 3)
	appendStep(state, scenario, "bid", map[string]any{"seat": seat, "bid": value})
	return chain(state)
}

func gamePlay(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	var cards []string
	switch state.TypeOf(3) {
	case lua.TypeString:
		value, _ := state.ToString(3)
		cards = strings.Fields(value)
	case lua.TypeTable:
		cards = stringList(tableToGo(state, 3))
	default:
		lua.ArgumentError(state, 3, "cards expected")
	}
	appendStep(state, scenario, "play", map[string]any{"seat": seat, "cards": cards})
	return chain(state)
}

func gamePass(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "pass", map[string]any{"seat": seat})
	return chain(state)
}

func gameAssignLandlord(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "assign_landlord", map[string]any{"seat": seat})
	return chain(state)
}

func gameExpectPhase(state *lua.State) int {
	scenario := checkGame(state)
	phase := lua.CheckString(state, 2)
	appendStep(state, scenario, "expect_phase", map[string]any{"phase": phase})
	return chain(state)
}

func gameExpectTurn(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "expect_turn", map[string]any{"seat": seat})
	return chain(state)
}

func gameExpectLandlord(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "expect_landlord", map[string]any{"seat": seat})
	return chain(state)
}

func gameExpectWinner(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	data := map[string]any{"seat": seat}
	if role := lua.OptString(state, 3, ""); role != "" {
		data["role"] = role
	}
	appendStep(state, scenario, "expect_winner", data)
	return chain(state)
}

func gameExpectHandSize(state *lua.State) int {
	scenario := checkGame(state)
	seat := lua.CheckInteger(state, 2)
	size := lua.CheckInteger(state, 3)
	appendStep(state, scenario, "expect_hand_size", map[string]any{"seat": seat, "size": size})
	return chain(state)
}

func gameExpectPasses(state *lua.State) int {
	scenario := checkGame(state)
	count := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "expect_passes", map[string]any{"count": count})
	return chain(state)
}

// gameExpectIncumbent checks the unbeaten play; nil or "none" expects an
// open trick.
func gameExpectIncumbent(state *lua.State) int {
	scenario := checkGame(state)
	kind := lua.OptString(state, 2, "none")
	appendStep(state, scenario, "expect_incumbent", map[string]any{"kind": kind})
	return chain(state)
}

func gameExpectSeq(state *lua.State) int {
	scenario := checkGame(state)
	seq := lua.CheckInteger(state, 2)
	appendStep(state, scenario, "expect_seq", map[string]any{"seq": seq})
	return chain(state)
}

// gameExpectRejected marks the previous action as expected to fail with code,
// matched against the rejection reason or its error class.
func gameExpectRejected(state *lua.State) int {
	scenario := checkGame(state)
	code := lua.CheckString(state, 2)
	appendStep(state, scenario, "expect_rejected", map[string]any{"code": code})
	return chain(state)
}

func checkGame(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, gameTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "game expected")
	return nil
}

// chain returns the receiver so calls can be written game:bid(0, 1):pass(1).
func chain(state *lua.State) int {
	state.PushValue(1)
	return 1
}

func appendStep(state *lua.State, scenario *Scenario, kind string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	step := Step{Kind: kind, Args: data}
	if frame, ok := lua.Stack(state, 1); ok {
		if info, ok := lua.Info(state, "l", frame); ok {
			step.Line = info.CurrentLine
		}
	}
	scenario.Steps = append(scenario.Steps, step)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo converts a sequence table to []any and any other table to a map.
func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	length := lua.LengthEx(state, index)
	if length == 0 {
		return tableToMap(state, index)
	}
	result := make([]any, 0, length)
	for i := 1; i <= length; i++ {
		state.RawGetInt(index, i)
		result = append(result, luaToGo(state, -1))
		state.Pop(1)
	}
	return result
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

// stringList flattens a decoded Lua value into card codes. Strings are split
// on whitespace so "3♠ 3♥" and {"3♠", "3♥"} are equivalent.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, stringList(item)...)
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}
