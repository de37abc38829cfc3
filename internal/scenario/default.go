package scenario

import "fmt"

// demoYAML is the built-in scenario used when no file is configured.
const demoYAML = `
name: demo
map:
  ratio: {x: 1, y: 1}
  rows:
    - "........................"
    - "........#..............."
    - "........#......#####...."
    - "........#..........#...."
    - "..####..#..........#...."
    - "........#####......#...."
    - "...................#...."
    - "..........#........#...."
    - "..........#............."
    - "..........#######......."
    - "........................"
    - "........................"
simulation:
  tickRate: 30
  searchBudget: 2ms
  scanOrder: round-robin
agents:
  - id: courier
    movement: pathfinding
    position: {x: 0, y: 0}
    speed: 6
    goals:
      - {x: 22, y: 10}
      - {x: 12, y: 3}
      - {x: 0, y: 11}
    loopGoals: true
  - id: guard
    movement: deterministic
    position: {x: 1, y: 8}
    speed: 3
    waypoints:
      - {x: 1, y: 8}
      - {x: 7, y: 8}
      - {x: 7, y: 11}
      - {x: 1, y: 11}
    loops: -1
  - id: hound
    movement: tracking
    position: {x: 23, y: 0}
    speed: 4
    target: courier
  - id: wanderer
    movement: random
    position: {x: 14, y: 6}
    speed: 5
    seed: 7
  - id: sentry
    movement: pattern
    position: {x: 21.5, y: 5.5}
    speed: 2
    pattern:
      - {direction: {x: 0, y: 1}, ticks: 40}
      - {direction: {x: 0, y: -1}, ticks: 40}
`

// Default returns the built-in demo scenario.
func Default() *File {
	f, err := Parse([]byte(demoYAML))
	if err != nil {
		panic(fmt.Sprintf("scenario: built-in demo is invalid: %v", err))
	}
	return f
}
