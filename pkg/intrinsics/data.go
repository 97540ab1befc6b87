package intrinsics

// builtin maps intrinsic opcodes to the U7Revisited Lua API, collected from the
// engine's Lua bindings and the Exult usecode documentation.
var builtin = map[int]Entry{
	0x0000: {"random", "Get random number", 1},
	0x0001: {"add_to_container", "Add item to container", 2},
	0x0002: {"remove_from_container", "Remove item from container", 3},
	0x0003: {"second_speaker", "Set secondary speaker in conversation", 3},
	0x0004: {"hide_npc", "Hide NPC portrait in conversation", 1},
	0x0005: {"add_answer", "Add dialogue answer options", 1},
	0x0006: {"remove_answer", "Remove dialogue answer options", 1},
	0x0007: {"save_answers", "Save current answer state", 0},
	0x0008: {"restore_answers", "Restore saved answer state", 0},
	0x000A: {"get_answer", "Get player's dialogue choice", 0},
	0x000B: {"ask_yes_no", "Present Yes/No choice", 0},
	0x000C: {"ask_number", "Ask player for numeric input", 4},
	0x000D: {"set_object_shape", "Set object shape ID", 2},
	0x000E: {"find_nearest", "Find nearest object of type", 3},
	0x0010: {"random2", "Get random number in range", 2},
	0x0011: {"get_object_shape", "Get object shape ID", 1},
	0x0012: {"get_object_frame", "Get object frame number", 1},
	0x0013: {"set_object_frame", "Set object frame number", 2},
	0x0014: {"get_object_quality", "Get object quality value", 1},
	0x0015: {"set_object_quality", "Set object quality value", 2},
	0x0016: {"set_item_quantity", "Set item quantity", 2},
	0x0017: {"create_new_object", "Advanced object creation", 2},
	0x0018: {"get_object_position", "Get object position", 1},
	0x0019: {"get_distance", "Get distance between objects", 2},
	0x001A: {"get_direction", "Get direction from object to target", 2},
	0x001B: {"get_npc_object", "Get NPC object reference", 1},
	0x001C: {"get_schedule", "Get NPC schedule type", 1},
	0x0020: {"get_npc_property", "Get NPC property value", 2},
	0x0021: {"set_npc_property", "Set NPC property value", 3},
	0x0022: {"get_active_player", "Get avatar/player reference", 0},
	0x0023: {"get_party_members", "Get list of party member names", 0},
	0x0024: {"spawn_object", "Create new object", 1},
	0x0025: {"set_last_created", "Mark object as last_created", 1},
	0x0026: {"set_object_position", "Set object position", 1},
	0x0027: {"get_player_name", "Get player/NPC name", 1},
	0x0028: {"count_objects", "Count objects matching criteria", 4},
	0x0029: {"click_on_item", "Simulate click on item", 1},
	0x002A: {"get_container_objects", "Get objects in container", 4},
	0x002B: {"add_party_items", "Add items to party inventory", 5},
	0x002C: {"remove_party_items", "Remove items from party", 5},
	0x002E: {"play_music", "Play music track", 2},
	0x002F: {"npc_id_in_party", "Check if NPC ID is in party", 1},
	0x0030: {"add_to_party", "Add NPC to party", 1},
	0x0031: {"is_npc", "Check if object is an NPC", 1},
	0x0033: {"object_select_modal", "Show object selection dialog", 0},
	0x0035: {"check_in_range", "Check if object in range", 4},
	0x0036: {"set_path_failure", "Set path failure handler", 1},
	0x0037: {"update_last_created", "Update last created object", 1},
	0x0038: {"get_time_hour", "Get current game hour", 0},
	0x0039: {"get_time_minute", "Get current game minute", 0},
	0x003A: {"some_check", "Unknown check function", 1},
	0x003B: {"another_check", "Unknown check function", 0},
	0x0040: {"bark", "Display text near object", 2},
	0x0041: {"sprite_effect_at_position", "Play sprite effect at position", 3},
	0x0042: {"set_timer", "Set timer", 2},
	0x0044: {"get_timer", "Get timer value", 1},
	0x0047: {"cause_light", "Create light effect", 1},
	0x0048: {"close_gumps", "Close all GUI windows", 0},
	0x004A: {"set_attack_mode", "Set NPC attack mode", 1},
	0x004D: {"get_barge", "Get barge object", 1},
	0x0051: {"play_sound_effect", "Play sound effect", 1},
	0x0052: {"sit_down", "Make NPC sit", 1},
	0x0054: {"sprite_effect", "Play visual effect", 3},
	0x0058: {"is_in_usecode", "Check if in usecode execution", 1},
	0x005E: {"array_size", "Get array size", 1},
	0x0062: {"get_avatar_ref", "Get avatar object reference", 0},
	0x0065: {"die_roll", "Roll dice", 2},
	0x0067: {"earthquake", "Trigger earthquake effect", 1},
	0x0068: {"detect_mouse", "Check if mouse exists", 0},
	0x0069: {"is_water", "Check if position is water", 1},
	0x006B: {"get_lift", "Get object lift/z-level", 1},
	0x006D: {"set_lift", "Set object lift/z-level", 2},
	0x006E: {"get_container", "Get container holding object", 1},
	0x0072: {"execute_usecode_array", "Execute embedded usecode", 4},
	0x0074: {"lightning", "Trigger lightning effect", 1},
	0x0079: {"in_usecode", "Mark object as in usecode", 1},
	0x007D: {"add_containerobject_s", "Add multiple items to container", 2},
	0x0081: {"is_in_gump_mode", "Check if GUI is open", 0},
	0x0085: {"is_not_blocked", "Check if position not blocked", 3},
	0x0087: {"flash_mouse", "Flash mouse cursor", 0},
	0x0088: {"check_object_flag", "Check object flag state", 2},
	0x008D: {"fade_palette", "Fade screen palette", 1},
	0x008E: {"armageddon", "Trigger armageddon", 0},
	0x008F: {"resurrection", "Resurrect NPC", 1},
	0x0090: {"hit_object", "Apply damage or hit effect", 1},
	0x0093: {"obj_sprite_effect", "Play sprite effect on object", 2},
	0x0096: {"set_orrery", "Set orrery state", 1},
}

// uiNames maps the UI_* intrinsic names used by decompiled usecode sources to
// their Lua API names.
var uiNames = map[string]Entry{
	"UI_close_gumps": {"close_gumps", "Close all GUI windows", 0},
	"UI_find_nearest": {"find_nearest", "Find nearest object of type", 3},
	"UI_get_item_flag": {"check_object_flag", "Check object flag state", 2},
	"UI_get_object_position": {"get_object_position", "Get object coordinates", 1},
	"UI_get_random": {"random", "Get random number", 2},
	"UI_get_schedule": {"get_schedule", "Get NPC schedule", 1},
	"UI_in_gump_mode": {"is_conversation_running", "Check if GUI is open", 0},
	"UI_item_say": {"bark", "Make object display text", 2},
	"UI_play_sound_effect": {"play_sound_effect", "Play sound", 1},
	"UI_remove_item": {"destroy_object", "Remove object from world", 1},
	"UI_set_schedule": {"set_schedule", "Set NPC schedule", 2},
	"UI_sprite_effect": {"sprite_effect", "Play visual effect", 7},
}

// hints names opcodes that show up in converted scripts but have no binding yet.
// They only feed descriptions, never callee names.
var hints = map[int]string{
	0x0018: "get_object_position",
	0x0035: "check_range_or_position",
	0x0044: "unknown_condition_check",
	0x006F: "unknown_object_manipulation",
	0x007E: "close_gumps_or_anchors",
	0x0081: "is_in_gump_mode",
	0x0088: "check_object_flag",
	0x008B: "unknown_operation",
	0x008F: "unknown_check",
	0x0829: "check_gangplank_position",
	0x08FF: "show_message",
	0x0900: "unknown_getter",
	0x0903: "unknown_setter",
	0x090C: "display_options_wrapper",
	0x0910: "get_npc_property_alt",
	0x0912: "set_npc_property_alt",
	0x091B: "format_price_string",
}

// EventTypes are the values 'eventid' takes when a usecode function is entered.
var EventTypes = map[int]string{
	0: "bark",
	1: "doubleclick",
	2: "use",
	3: "egg",
	4: "spell",
	7: "special",
}
